package netguard

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestIsInternal(t *testing.T) {
	internal := []string{"127.0.0.1", "::1", "10.0.0.8", "172.16.4.4", "192.168.1.1", "169.254.169.254", "fe80::1", "0.0.0.0", "fd00::1"}
	public := []string{"8.8.8.8", "1.1.1.1", "2606:4700:4700::1111"}
	for _, s := range internal {
		if !IsInternal(net.ParseIP(s)) {
			t.Errorf("IsInternal(%s) = false", s)
		}
	}
	for _, s := range public {
		if IsInternal(net.ParseIP(s)) {
			t.Errorf("IsInternal(%s) = true", s)
		}
	}
}

func TestControlRejectsResolvedInternalAddress(t *testing.T) {
	g := Guard{Allow: []string{"127.0.0.1:8080"}}
	if err := g.Control("tcp", "127.0.0.1:8080", nil); err != nil {
		t.Errorf("allowed address rejected: %v", err)
	}
	for _, addr := range []string{"127.0.0.1:9090", "10.1.1.1:80", "[::1]:443", "169.254.169.254:80"} {
		if err := g.Control("tcp", addr, nil); !errors.Is(err, ErrBlocked) {
			t.Errorf("Control(%s) = %v, want ErrBlocked", addr, err)
		}
	}
	if err := g.Control("tcp", "93.184.216.34:443", nil); err != nil {
		t.Errorf("public address rejected: %v", err)
	}
}

func TestCheckURL(t *testing.T) {
	var g Guard
	for _, raw := range []string{"http://localhost/x", "http://api.localhost/x", "http://127.0.0.1/x", "http://[::1]/x", "http://10.0.0.1/x"} {
		u, _ := url.Parse(raw)
		if err := g.CheckURL(u); !errors.Is(err, ErrBlocked) {
			t.Errorf("CheckURL(%s) = %v", raw, err)
		}
	}
	u, _ := url.Parse("ftp://example.com/x")
	if err := g.CheckURL(u); err == nil {
		t.Error("ftp accepted")
	}
	u, _ = url.Parse("https://example.com/a.pdf")
	if err := g.CheckURL(u); err != nil {
		t.Errorf("public URL rejected: %v", err)
	}
}

func TestClientRefusesInternalTargets(t *testing.T) {
	var hits int
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		io.WriteString(w, "INTERNAL SECRET")
	}))
	defer internal.Close()

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/meta.txt", http.StatusFound)
	}))
	defer redirector.Close()

	t.Run("direct", func(t *testing.T) {
		_, err := Guard{}.Client().Get(internal.URL + "/meta.txt")
		if !errors.Is(err, ErrBlocked) {
			t.Fatalf("err = %v, want ErrBlocked", err)
		}
	})

	t.Run("redirect", func(t *testing.T) {
		g := Guard{Allow: []string{redirector.Listener.Addr().String()}}
		_, err := g.Client().Get(redirector.URL + "/doc.txt")
		if !errors.Is(err, ErrBlocked) {
			t.Fatalf("err = %v, want ErrBlocked", err)
		}
	})

	if hits != 0 {
		t.Errorf("internal server was reached %d times", hits)
	}
}
