// Command hashpass prints the bcrypt hash of a master secret for the
// MASTER_PASSWORD_HASH setting. The secret is read without echo from a
// terminal, or as the first line of piped input.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/nilavanti/internal/security"
	"golang.org/x/term"
)

func main() {
	cost := flag.Int("cost", 0, "bcrypt cost (0 uses the default)")
	flag.Parse()

	secret, err := readSecret(os.Stdin, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpass:", err)
		os.Exit(1)
	}
	if err := run(os.Stdout, secret, *cost); err != nil {
		fmt.Fprintln(os.Stderr, "hashpass:", err)
		os.Exit(1)
	}
}

func readSecret(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Master secret: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		return string(b), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func run(out io.Writer, secret string, cost int) error {
	if secret == "" {
		return errors.New("empty secret")
	}
	hash, err := security.NewBcryptHasher(cost).Hash(secret)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
