package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func startSniffServer(t *testing.T, allowPlain bool) (addr string, pool *x509.CertPool) {
	t.Helper()

	certPEM, keyPEM, err := SelfSigned(nil, time.Hour)
	if err != nil {
		t.Fatalf("SelfSigned failed: %v", err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("X509KeyPair failed: %v", err)
	}
	pool = x509.NewCertPool()
	pool.AppendCertsFromPEM(certPEM)

	inner, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	ln := NewSniffListener(inner, ServerConfig(cert), allowPlain)

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		fmt.Fprint(w, scheme)
	})}
	go server.Serve(ln)
	t.Cleanup(func() { server.Close() })

	return inner.Addr().String(), pool
}

func get(t *testing.T, client *http.Client, url string) string {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestSniffListener_ServesBothSchemes(t *testing.T) {
	addr, pool := startSniffServer(t, true)

	httpsClient := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool, ServerName: "localhost"}},
	}
	if got := get(t, httpsClient, "https://"+addr+"/"); got != "https" {
		t.Errorf("Expected https response, got %q", got)
	}

	plainClient := &http.Client{Timeout: 5 * time.Second}
	if got := get(t, plainClient, "http://"+addr+"/"); got != "http" {
		t.Errorf("Expected plain response, got %q", got)
	}
}

func TestSniffListener_RejectsPlain(t *testing.T) {
	addr, _ := startSniffServer(t, false)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	_, _ = conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := io.ReadAll(conn)
	if err != nil && !strings.Contains(err.Error(), "reset") {
		t.Fatalf("Expected the connection to be closed, got %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected no response on a TLS-only port, got %q", data)
	}
}

func TestSniffListener_Close(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	ln := NewSniffListener(inner, &tls.Config{MinVersion: tls.VersionTLS12}, true)

	if ln.Addr() != inner.Addr() {
		t.Error("Expected address of the underlying listener")
	}

	done := make(chan error, 1)
	go func() {
		_, err := ln.Accept()
		done <- err
	}()

	if err := ln.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	// Closing twice is harmless
	if err := ln.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	select {
	case err := <-done:
		if err == nil {
			t.Error("Expected Accept to fail after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Accept did not return after Close")
	}
}

func TestSniffedConn_ReplaysPeekedByte(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	ln := NewSniffListener(inner, &tls.Config{MinVersion: tls.VersionTLS12}, true)
	defer ln.Close()

	go func() {
		conn, err := net.Dial("tcp", inner.Addr().String())
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("hello"))
		time.Sleep(100 * time.Millisecond)
	}()

	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 5)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("Expected the full payload including the sniffed byte, got %q", buf)
	}
}
