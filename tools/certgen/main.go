// Command certgen writes a development CA and a server certificate signed
// by it into a directory (certs/ by default). An existing CA is reused so
// clients that already trust it keep working.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/nilavanti/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	hosts := flag.String("hosts", "localhost,127.0.0.1", "comma-separated server names and IPs")
	flag.Parse()

	if err := run(os.Stdout, *dir, splitHosts(*hosts)); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
}

func run(out io.Writer, dir string, hosts []string) error {
	caCert := filepath.Join(dir, "ca.crt")
	caKey := filepath.Join(dir, "ca.key")

	ca, err := certgen.LoadCA(caCert, caKey)
	switch {
	case err == nil:
		fmt.Fprintln(out, "using existing CA", caCert)
	case errors.Is(err, os.ErrNotExist):
		ca, err = certgen.NewCA("Nilavanti Dev CA", 10*365*24*time.Hour)
		if err != nil {
			return err
		}
		keyPEM, err := ca.KeyPEM()
		if err != nil {
			return err
		}
		if err := certgen.WritePair(dir, "ca", ca.CertPEM(), keyPEM); err != nil {
			return err
		}
	default:
		return err
	}

	certPEM, keyPEM, err := ca.IssueServer(hosts, 365*24*time.Hour)
	if err != nil {
		return err
	}
	if err := certgen.WritePair(dir, "server", certPEM, keyPEM); err != nil {
		return err
	}

	fmt.Fprintf(out, "Certificates generated into %s (server: %s)\n", dir, strings.Join(hosts, ", "))
	return nil
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}
