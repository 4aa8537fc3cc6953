package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gotodo/internal/server/auth"
	"github.com/dmitrijs2005/gotodo/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gotodo/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	orig := passwordReader
	t.Cleanup(func() { passwordReader = orig })
	passwordReader = func(string, io.Writer) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more answers")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
}

func newUserService(t *testing.T) (*services.UserService, repomanager.RepositoryManager) {
	t.Helper()
	h, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	c, err := auth.NewTokenCodec([]byte("k"))
	require.NoError(t, err)
	rm := repomanager.NewInMemoryRepositoryManager()
	return services.NewUserService(rm, h, c, time.Hour), rm
}

func TestAddUser(t *testing.T) {
	us, rm := newUserService(t)
	stubPasswords(t, "pw123", "pw123")

	in := bufio.NewReader(strings.NewReader("alice@x.com\nalice\nAlice\nLiddell\n"))
	var out bytes.Buffer

	u, err := AddUser(context.Background(), in, &out, us)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "Liddell", u.LastName)
	assert.Contains(t, out.String(), "Email\n> ")

	_, _, err = us.Login(context.Background(), "alice", "pw123")
	assert.NoError(t, err)

	n, err := rm.Users().Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAddUser_PasswordMismatch(t *testing.T) {
	us, _ := newUserService(t)
	stubPasswords(t, "pw123", "pw124")

	in := bufio.NewReader(strings.NewReader("alice@x.com\nalice\n\n\n"))
	_, err := AddUser(context.Background(), in, io.Discard, us)
	assert.ErrorIs(t, err, services.ErrInvalidRegistration)
}

func TestAddUser_InputErrors(t *testing.T) {
	us, _ := newUserService(t)

	stubPasswords(t)
	_, err := AddUser(context.Background(), bufio.NewReader(strings.NewReader("")), io.Discard, us)
	assert.ErrorContains(t, err, "read Email")

	_, err = AddUser(context.Background(), bufio.NewReader(strings.NewReader("a\nb\nc\nd\n")), io.Discard, us)
	assert.ErrorContains(t, err, "read password")
}
