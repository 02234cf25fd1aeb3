package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/ikkim/inventory-backend/config"
	"github.com/ikkim/inventory-backend/pkg/util"
)

// Issues a bearer token for the write endpoints, signed with JWT_SECRET.
func main() {
	operator := flag.String("operator", "admin", "name recorded in the token")
	expiry := flag.Duration("expiry", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set; authentication is disabled")
	}

	token, err := util.GenerateToken(*operator, cfg.Auth.JWTSecret, *expiry)
	if err != nil {
		log.Fatal("Failed to generate token:", err)
	}
	fmt.Println(token)
}
