package mapper

import (
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FrameLog appends one structured JSON record per ingested keyframe:
// counters and phase timings, stamped with a per-session id. It is not in
// the correctness path; write failures are swallowed and reported once per
// session through the ambient logger.
type FrameLog struct {
	enabled bool
	session string
	frame   int
	clk     clock.Clock
	enc     zapcore.Encoder
	out     io.Writer
	logger  golog.Logger

	failOnce sync.Once
}

// NewFrameLog returns a frame log writing to out. A nil out discards
// records but still advances frame numbering.
func NewFrameLog(out io.Writer, logger golog.Logger, clk clock.Clock) *FrameLog {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return &FrameLog{
		enabled: true,
		session: uuid.New().String(),
		clk:     clk,
		enc:     zapcore.NewJSONEncoder(cfg),
		out:     out,
		logger:  logger,
	}
}

// Session returns the session id stamped on every record.
func (fl *FrameLog) Session() string {
	return fl.session
}

// SetWriter redirects subsequent records to out.
func (fl *FrameLog) SetWriter(out io.Writer) {
	fl.out = out
}

// SetEnabled toggles record emission.
func (fl *FrameLog) SetEnabled(enabled bool) {
	fl.enabled = enabled
}

// Record appends one frame record carrying the given fields.
func (fl *FrameLog) Record(fields ...zap.Field) {
	frame := fl.frame
	fl.frame++
	if !fl.enabled || fl.out == nil {
		return
	}
	entry := zapcore.Entry{
		Time:       fl.clk.Now(),
		Level:      zapcore.InfoLevel,
		LoggerName: "surfelmapper.frames",
		Message:    "frame",
	}
	all := make([]zap.Field, 0, len(fields)+2)
	all = append(all, zap.String("session", fl.session), zap.Int("frame", frame))
	all = append(all, fields...)

	buf, err := fl.enc.EncodeEntry(entry, all)
	if err == nil {
		_, err = fl.out.Write(buf.Bytes())
		buf.Free()
	}
	if err != nil {
		fl.failOnce.Do(func() {
			fl.logger.Warnw("frame log write failed, suppressing further reports this session", "error", err)
		})
	}
}
