package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scmdash/model"
)

func masterRows() []model.Row {
	return []model.Row{
		{"codigo": "PC1", "nombre": "Paracetamol 500mg", "unidades_envase": 20},
		{"nombre": "sin codigo"},
		{"codigo": "PC2", "nombre": "Ibuprofeno 400mg"},
		{"codigo": "PC1", "nombre": "Paracetamol 500mg x30", "unidades_envase": "30"},
	}
}

func TestBuildLastWriteWins(t *testing.T) {
	c := Build(masterRows())

	assert.Equal(t, 2, c.Len())
	e, ok := c.Lookup("PC1")
	require.True(t, ok)
	assert.Equal(t, "Paracetamol 500mg x30", e.ProductName)
	require.NotNil(t, e.PackageUnits)
	assert.Equal(t, 30.0, *e.PackageUnits)
	assert.Equal(t, []string{"PC1"}, c.Duplicates())

	c.LogDuplicates(zap.NewNop())
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	c := Build(masterRows())
	input := []model.Row{
		{"oci": "OCI-1", "codigo_presentacion": "PC2", "cantidad": 5},
		{"oci": "OCI-2", "codigo_presentacion": "PC404"},
	}

	out := c.Enrich(input)

	require.Len(t, out, 2)
	assert.NotContains(t, input[0], "productName")
	assert.NotContains(t, input[1], "packageUnits")

	assert.Equal(t, "Ibuprofeno 400mg", out[0]["productName"])
	assert.Nil(t, out[0]["packageUnits"])
	assert.Equal(t, "OCI-1", out[0]["oci"])
	assert.Equal(t, 5, out[0]["cantidad"])
	assert.Len(t, out[0], len(input[0])+2)

	assert.Equal(t, "", out[1]["productName"])
	assert.Contains(t, out[1], "packageUnits")
	assert.Nil(t, out[1]["packageUnits"])
}

func TestEnrichDemandFillsMissingNames(t *testing.T) {
	c := Build(masterRows())
	rows := []model.DemandRow{
		{PresentationCode: "PC2"},
		{PresentationCode: "PC1", ProductName: "nombre propio"},
		{PresentationCode: "PC9"},
	}
	out := c.EnrichDemand(rows)

	assert.Equal(t, "Ibuprofeno 400mg", out[0].ProductName)
	assert.Equal(t, "nombre propio", out[1].ProductName)
	assert.Equal(t, "", out[2].ProductName)
	assert.Equal(t, "", rows[0].ProductName)
}

func TestNilCatalogLookup(t *testing.T) {
	var c *Catalog
	_, ok := c.Lookup("PC1")
	assert.False(t, ok)
}
