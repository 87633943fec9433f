// Package main は運用向けの補助コマンドです。
// APP_PASSWORD_HASH に設定する bcrypt ハッシュの生成と照合を行います。
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/yourusername/authgate/internal/users"
)

func main() {
	if err := newCommand(os.Stdin).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand(stdin io.Reader) *cli.Command {
	return &cli.Command{
		Name:  "authctl",
		Usage: "Password hash utilities for the auth API",
		Commands: []*cli.Command{
			{
				Name:  "hash",
				Usage: "Print a bcrypt hash for APP_PASSWORD_HASH",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password to hash (prompted when omitted)",
					},
					&cli.IntFlag{
						Name:  "cost",
						Usage: "bcrypt cost",
						Value: users.DefaultBcryptCost,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					hasher, err := users.NewBcryptHasher(int(c.Int("cost")))
					if err != nil {
						return err
					}
					password, err := passwordFrom(c, stdin)
					if err != nil {
						return err
					}
					hash, err := hasher.Hash(password)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.Root().Writer, hash)
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "Check a password against a bcrypt hash",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "hash",
						Usage:    "bcrypt hash to check against",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Password to check (prompted when omitted)",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					hash := c.String("hash")
					if !users.IsHash(hash) {
						return errors.New("--hash is not a bcrypt hash")
					}
					password, err := passwordFrom(c, stdin)
					if err != nil {
						return err
					}
					hasher := &users.BcryptHasher{}
					if !hasher.Verify(hash, password) {
						return errors.New("password does not match")
					}
					fmt.Fprintln(c.Root().Writer, "ok")
					return nil
				},
			},
		},
	}
}

// passwordFrom はフラグ、端末プロンプト、標準入力の順でパスワードを取得します。
func passwordFrom(c *cli.Command, stdin io.Reader) (string, error) {
	if p := c.String("password"); p != "" {
		return p, nil
	}

	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.Root().ErrWriter, "Password: ")
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.Root().ErrWriter)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		if len(raw) == 0 {
			return "", errors.New("password is empty")
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is empty")
	}
	return password, nil
}
