package main

import (
	"github.com/corray333/backend-labs/checkout/internal/app"
	"github.com/corray333/backend-labs/checkout/internal/config"
)

// @title						Checkout API
// @version					1.0
// @description				Payment initiation, webhook reconciliation and order back office.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
