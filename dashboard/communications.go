package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"

	"scmdash/mappers"
	"scmdash/model"
	"scmdash/sheets"
)

var linkedTypes = map[string]bool{
	model.LinkedTender:        true,
	model.LinkedPurchaseOrder: true,
	model.LinkedImport:        true,
}

// FilterCommunications は linked_type / linked_id が一致する連絡だけを返します。空の条件は無視します。
// 参照先の存在は確認しないため、参照が切れた連絡は単に一致しません。
func FilterCommunications(comms []model.Communication, linkedType, linkedID string) []model.Communication {
	linkedType = strings.ToLower(strings.TrimSpace(linkedType))
	linkedID = strings.TrimSpace(linkedID)
	out := make([]model.Communication, 0, len(comms))
	for _, c := range comms {
		if linkedType != "" && c.LinkedType != linkedType {
			continue
		}
		if linkedID != "" && c.LinkedID != linkedID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortNewestFirst は作成日の新しい順に並べます。日付を読めない連絡は後ろに元の順で残します。
func SortNewestFirst(comms []model.Communication) {
	sort.SliceStable(comms, func(i, j int) bool {
		ti, okI := mappers.ParseDate(comms[i].CreatedDate)
		tj, okJ := mappers.ParseDate(comms[j].CreatedDate)
		if okI != okJ {
			return okI
		}
		return okI && ti.After(tj)
	})
}

// CommunicationsHandler は GET /api/communications です。
func (s *Server) CommunicationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := s.backend.ReadTable(r.Context(), model.TableCommunications)
		if err != nil {
			s.writeBackendError(w, "communications", err)
			return
		}
		comms := make([]model.Communication, 0, len(rows))
		for _, row := range rows {
			comms = append(comms, mappers.ToCommunication(row))
		}
		q := r.URL.Query()
		comms = FilterCommunications(comms, q.Get("linked_type"), q.Get("linked_id"))
		SortNewestFirst(comms)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(comms), "communications": comms})
	}
}

type communicationInput struct {
	LinkedType   string   `json:"linked_type"`
	LinkedID     string   `json:"linked_id"`
	Type         string   `json:"type"`
	Subject      string   `json:"subject"`
	Content      string   `json:"content"`
	Participants []string `json:"participants"`
	CreatedDate  string   `json:"createdDate"`
}

// CreateCommunicationHandler は POST /api/communications です。
// id と作成日は未指定なら割り当て、preview は本文の先頭から作ります。
func (s *Server) CreateCommunicationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in communicationInput
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRowBytes)).Decode(&in); err != nil {
			writeJSONError(w, "request body must be a JSON object", http.StatusBadRequest)
			return
		}
		in.LinkedType = strings.ToLower(strings.TrimSpace(in.LinkedType))
		if in.LinkedType != "" && !linkedTypes[in.LinkedType] {
			writeJSONError(w, "linked_type must be tender, purchase_order or import", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(in.Subject) == "" && strings.TrimSpace(in.Content) == "" {
			writeJSONError(w, "subject or content is required", http.StatusBadRequest)
			return
		}
		if in.CreatedDate == "" {
			in.CreatedDate = s.now().UTC().Format("2006-01-02T15:04:05Z07:00")
		}

		row := sheets.WithID(model.Row{
			"linked_type":  in.LinkedType,
			"linked_id":    strings.TrimSpace(in.LinkedID),
			"type":         in.Type,
			"subject":      in.Subject,
			"content":      in.Content,
			"preview":      mappers.Preview(in.Content, mappers.PreviewRunes),
			"participants": strings.Join(in.Participants, ", "),
			"createdDate":  in.CreatedDate,
		})
		created, err := s.backend.WriteRow(r.Context(), model.TableCommunications, row)
		if err != nil {
			s.writeBackendError(w, "create communication", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "communication": mappers.ToCommunication(created)})
	}
}
