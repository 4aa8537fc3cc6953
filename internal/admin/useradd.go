// Package admin holds operator commands that run against the store directly.
package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gotodo/internal/common"
	"github.com/dmitrijs2005/gotodo/internal/prompt"
	"github.com/dmitrijs2005/gotodo/internal/server/models"
	"github.com/dmitrijs2005/gotodo/internal/server/services"
)

// Registrar is the part of UserService AddUser needs.
type Registrar interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
}

// passwordReader is a test seam for prompt.Password.
var passwordReader = prompt.Password

// AddUser asks for the account details on reader/w and registers the user
// through the same path as the web form.
func AddUser(ctx context.Context, reader *bufio.Reader, w io.Writer, users Registrar) (*models.User, error) {
	req := services.RegisterRequest{}
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Email", &req.Email},
		{"Username", &req.Username},
		{"First name", &req.FirstName},
		{"Last name", &req.LastName},
	}
	for _, f := range fields {
		v, err := prompt.Text(reader, f.prompt, w)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.prompt, err)
		}
		*f.dst = v
	}

	pw, err := passwordReader("Password", w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)

	pw2, err := passwordReader("Verify password", w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw2)

	req.Password = string(pw)
	req.Password2 = string(pw2)

	return users.Register(ctx, req)
}
