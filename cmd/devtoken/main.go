// Command devtoken prints a signed access token for local testing.  The
// secret is read from JWT_SECRET (or .env) unless -secret is given.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking/internal/utils"
)

func main() {
	_ = godotenv.Load()

	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret")
	user := flag.String("user", "", "user id (uuid); random when empty")
	role := flag.String("role", "customer", "role claim, admin for /v1/admin")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *user == "" {
		*user = uuid.NewString()
	}
	tok, err := utils.NewAccessToken(*secret, *user, *role, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("sign token")
	}
	fmt.Println(tok.Token)
	logrus.WithFields(logrus.Fields{"user": *user, "role": *role, "exp": tok.Exp.Format(time.RFC3339)}).Info("token issued")
}
