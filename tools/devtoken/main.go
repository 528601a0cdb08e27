package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/loyaltycore/campaigns-api/platform/go/auth/devtoken"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant_id claim")
	subject := flag.String("subject", "", "sub claim (defaults to tenant)")
	expiresIn := flag.Duration("expires-in", time.Hour, "token lifetime (duration, e.g. 30m, 2h)")

	flag.Parse()

	token, err := devtoken.Build(devtoken.Params{
		TenantID:  strings.TrimSpace(*tenantID),
		Subject:   strings.TrimSpace(*subject),
		ExpiresIn: *expiresIn,
	}, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
