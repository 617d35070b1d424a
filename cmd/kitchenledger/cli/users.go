// Package cli holds the operator commands of the kitchenledger binary.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/kitchenledger/kitchenledger/internal/auth"
)

// ErrUsage reports a malformed command line.
var ErrUsage = errors.New("usage")

// RunUser handles `user add -email <email> -password <password>`.
func RunUser(ctx context.Context, args []string, w auth.UserWriter, out io.Writer) error {
	if len(args) == 0 || args[0] != "add" {
		return fmt.Errorf("%w: user add -email <email> -password <password>", ErrUsage)
	}
	fs := flag.NewFlagSet("user add", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "operator email")
	password := fs.String("password", "", "operator password")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	id, err := auth.Provision(ctx, w, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "user %s ready (id=%d)\n", *email, id)
	return nil
}
