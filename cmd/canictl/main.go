// Command canictl is the operator and client toolbox: payload envelopes,
// CLI identities, code encryption keys and database migrations.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hugh/canicloud/internal/auth"
	"github.com/hugh/canicloud/internal/database"
	"github.com/hugh/canicloud/pkg/config"
	"github.com/hugh/canicloud/pkg/crypto"
	"github.com/hugh/canicloud/pkg/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// version is injected at build time:
// go build -ldflags="-X main.version=v1.2.3"
var version = "dev"

type app struct {
	in  io.Reader
	out io.Writer

	loadConfig   func() (*config.Config, error)
	readPassword func(fd int) ([]byte, error)
	isTerminal   func(fd int) bool
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{
		in:           in,
		out:          out,
		loadConfig:   config.Load,
		readPassword: term.ReadPassword,
		isTerminal:   term.IsTerminal,
	}
}

func (a *app) envelope() (*crypto.Envelope, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	return crypto.NewEnvelope(cfg.Encryption.Key, cfg.Encryption.Randomizer)
}

// promptPassword reads without echo on a terminal and a single line
// otherwise.
func (a *app) promptPassword(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && a.isTerminal(int(f.Fd())) {
		fmt.Fprint(a.out, prompt)
		b, err := a.readPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}

func (a *app) encrypt(text string) error {
	env, err := a.envelope()
	if err != nil {
		return err
	}
	ct, err := env.Encrypt(text)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, ct)
	return nil
}

func (a *app) decrypt(ciphertext string) error {
	env, err := a.envelope()
	if err != nil {
		return err
	}
	plain, err := env.Decrypt(ciphertext)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, plain)
	return nil
}

// identity prints the value signinWithCli accepts as "identity". Without
// encryptedPassword the plain password is prompted for and enveloped.
func (a *app) identity(principalID, encryptedPassword string) error {
	env, err := a.envelope()
	if err != nil {
		return err
	}

	if encryptedPassword == "" {
		password, err := a.promptPassword("Password: ")
		if err != nil {
			return err
		}
		if encryptedPassword, err = env.Encrypt(password); err != nil {
			return err
		}
	} else if _, err := env.Decrypt(encryptedPassword); err != nil {
		return fmt.Errorf("encrypted password was not produced with this key: %w", err)
	}

	id, err := env.EncryptJSON(auth.CliIdentity{
		PrincipalID:       principalID,
		EncryptedPassword: encryptedPassword,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, id)
	return nil
}

func (a *app) keygen() error {
	key, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "CODE_ENCRYPTION_KEY=%s\n", key)
	return nil
}

func (a *app) migrateUp() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	return database.Migrate(cfg.Database.URL(), util.NewLoggerTo(a.out, cfg.Server.Env))
}

func (a *app) migrateDown(steps int) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if err := database.Rollback(cfg.Database.URL(), steps); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "rolled back %d migration(s)\n", steps)
	return nil
}

func buildRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "canictl",
		Short:         "canicloud toolbox",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(a.out)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "encrypt <text>",
		Short: "Envelope-encrypt a payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.encrypt(args[0])
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "decrypt <ciphertext>",
		Short: "Decrypt an enveloped payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.decrypt(args[0])
		},
	})

	var principal, encryptedPassword string
	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Build a CLI sign-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.identity(principal, encryptedPassword)
		},
	}
	identityCmd.Flags().StringVar(&principal, "principal", "", "Internet Identity principal")
	identityCmd.Flags().StringVar(&encryptedPassword, "encrypted-password", "", "encryptedPassword returned by signinWithII")
	_ = identityCmd.MarkFlagRequired("principal")
	rootCmd.AddCommand(identityCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "keygen",
		Short: "Generate a code encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.keygen()
		},
	})

	migrateCmd := &cobra.Command{Use: "migrate", Short: "Manage database migrations"}
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.migrateUp()
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("invalid steps %q", args[0])
				}
				steps = n
			}
			return a.migrateDown(steps)
		},
	})

	return rootCmd
}

func main() {
	_ = godotenv.Load()

	if err := buildRootCmd(newApp(os.Stdin, os.Stdout)).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
