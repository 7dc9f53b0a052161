// Command pwhash prints a bcrypt digest for seeding persons, such as an
// ADMIN account, directly into the database.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/josh-kwaku/money-tracker/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("pwhash", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	cost := fs.IntP("cost", "c", 12, "bcrypt cost")
	fromStdin := fs.Bool("stdin", false, "read the password from the first line of stdin")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if *cost < bcrypt.MinCost || *cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	var (
		password string
		err      error
	)
	if *fromStdin {
		password, err = readLine(stdin)
	} else {
		fmt.Fprint(stderr, "Password: ")
		password, err = readPassword(stdin)
		fmt.Fprintln(stderr)
	}
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	if strings.TrimSpace(password) == "" {
		return errors.New("password cannot be empty")
	}
	if len(password) > 72 {
		return errors.New("password must be at most 72 bytes")
	}

	digest, err := service.NewBcryptHasher(*cost).Hash(password)
	if err != nil {
		return fmt.Errorf("hash: %w", err)
	}

	fmt.Fprintln(stdout, digest)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(stdin)
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
