package server

import "testing"

func TestGetListener_PlainTCP(t *testing.T) {
	t.Setenv("SOCKET_ACTIVATION", "")
	ln, err := GetListener("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	if ln.Addr().String() == "" {
		t.Fatalf("expected bound address")
	}
}
