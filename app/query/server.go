package query

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/poh-analytics/pohx/app/query/controller"
	"github.com/poh-analytics/pohx/app/query/types"
)

// NewServer builds the HTTP server of app.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	addr := app.Config.App.Addr

	app.Server = &http.Server{Addr: addr, Handler: controller.WithCORS(router)}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}
