package main

import "github.com/avdeyev/taskflow/internal/app"

func main() {
	app.InitDefaultLogger()
	app.MustReadEnv()
	app.MustInitApplicationLogger()

	app.MustConnectPostgres()
	defer app.DisconnectPostgres()

	app.MustInitTelegram()

	app.MustListenAndServeHTTP()
}
