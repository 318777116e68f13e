package secret

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSetGetDelete(t *testing.T) {
	gokeyring.MockInit()

	if err := Set("192.168.4.1", "admin", "campanile"); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	got, err := Get("192.168.4.1", "admin")
	if err != nil || got != "campanile" {
		t.Fatalf("Get = %q, %v; want campanile", got, err)
	}

	if _, err := Get("10.0.0.2", "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(other device) error = %v, want ErrNotFound", err)
	}

	if err := Delete("192.168.4.1", "admin"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := Delete("192.168.4.1", "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestSetRejectsEmpty(t *testing.T) {
	gokeyring.MockInit()
	if err := Set("192.168.4.1", "admin", ""); err == nil {
		t.Fatalf("Set with empty password returned nil error")
	}
}

func TestGetUnavailable(t *testing.T) {
	gokeyring.MockInitWithError(errors.New("dbus down"))
	if _, err := Get("192.168.4.1", "admin"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Get error = %v, want ErrUnavailable", err)
	}
}

func TestAccount(t *testing.T) {
	if got := Account(" bells.local ", " admin "); got != "admin@bells.local" {
		t.Fatalf("Account = %q", got)
	}
}
