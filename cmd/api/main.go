// @title                      TodoCalendar API
// @version                    1.0
// @description                Personal todos and calendars with JWT auth.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the access token.
package main

import (
	"fmt"
	"os"

	_ "todocalendar/docs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
