package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/xsense-integration/pkg/hasher"
)

// HashPasswordCommand prints the hash of the password given as argument, or read
// from the first line of stdin.
func HashPasswordCommand(ctx *cli.Context) error {
	password := ctx.Args().First()
	if password == "" {
		line, err := bufio.NewReader(ctx.App.Reader).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	hash, err := hasher.HashPassword([]byte(password))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.App.Writer, hash)
	return err
}
