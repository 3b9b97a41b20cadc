package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const scheduledSyncTimeout = 5 * time.Minute

// cronLogger は cron.Logger を zap に流します。
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// StartSchedule は cron 式 (5フィールド) に従って job を実行するスケジューラを開始します。
// 前回の実行が終わっていなければその回は飛ばします。呼び出し側は Stop で止めてください。
func StartSchedule(spec string, job func(ctx context.Context), logger *zap.Logger) (*cron.Cron, error) {
	cl := cronLogger{s: logger.Sugar()}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scheduledSyncTimeout)
		defer cancel()
		job(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	c.Start()
	logger.Info("mirror sync scheduled", zap.String("schedule", spec))
	return c, nil
}
