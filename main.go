package main

import (
	"net/http"
	"os"
	"time"

	"github.com/fiffu/manzil/app"
	"github.com/fiffu/manzil/config"
	"github.com/fiffu/manzil/lib/cms"
	"github.com/fiffu/manzil/lib/contact"
	"github.com/fiffu/manzil/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	fx.New(
		fx.Provide(config.NewConfig),
		fx.Provide(NewLogger),

		fx.Provide(app.NewTransport),
		fx.Provide(senders.NewSenderRegistry),
		fx.Provide(cms.NewClient),
		fx.Provide(contact.NewService),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewClientStorage),
		fx.Provide(app.NewLedger),
		fx.Provide(app.NewClients),
		fx.Provide(app.NewService),
		fx.Provide(app.NewSweeper),
		fx.Provide(app.NewHTTPServer),

		fx.Invoke(func(*http.Server, *app.Sweeper) {}),
	).Run()
}
