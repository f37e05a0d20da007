package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/modledger/modledger/internal/model"
	"github.com/modledger/modledger/internal/service"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage admin keys",
		Long:  "Generate, list, revoke, and back up the admin keys that guard moderation operations.",
	}

	cmd.AddCommand(newKeyGenerateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())
	cmd.AddCommand(newKeyExportCmd())
	cmd.AddCommand(newKeyImportCmd())

	return cmd
}

func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// ---------- key generate ----------

func newKeyGenerateCmd() *cobra.Command {
	var (
		role  string
		level int16
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new admin key",
		Long:  "Generate a new admin key at the given level. The raw key is shown once and cannot be retrieved again.",
		Example: `  modledger key generate --role moderator --level 1
  modledger key generate --role owner --level 127`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyGenerate(level, role)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Role label for the key (required)")
	cmd.Flags().Int16Var(&level, "level", 1, "Authorization level, 0-127")
	cmd.MarkFlagRequired("role")

	return cmd
}

func runKeyGenerate(level int16, role string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	keys := service.NewKeyStore(st, cliLogger())
	key, err := keys.Generate(context.Background(), level, role)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	fmt.Printf("Admin key (%s, lvl %d):\n\n  %s\n\n", role, level, key)
	fmt.Println("Store it now; it is shown only once.")
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored admin keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList()
		},
	}
}

func runKeyList() error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	keys, err := st.ListKeys(context.Background())
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Println("No admin keys stored.")
		return nil
	}

	fmt.Printf("%-5s %-12s %-5s %s\n", "ID", "PREFIX", "LVL", "ROLE")
	for _, k := range keys {
		fmt.Printf("%-5d %-12s %-5d %s\n", k.ID, k.Key[:8]+"...", k.Level, k.Role)
	}
	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	var (
		key  string
		role string
	)

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke admin keys",
		Long:  "Revoke a single key by its token or every key carrying a role label. The token is prompted without echo when omitted.",
		Example: `  modledger key revoke --role moderator
  modledger key revoke  # prompts for the key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(key, role)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Key token to revoke")
	cmd.Flags().StringVar(&role, "role", "", "Revoke all keys with this role")

	return cmd
}

func runKeyRevoke(key, role string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	keys := service.NewKeyStore(st, cliLogger())
	ctx := context.Background()

	if role != "" {
		if err := keys.RevokeRole(ctx, role); err != nil {
			return fmt.Errorf("revoke role: %w", err)
		}
		fmt.Printf("Revoked all keys with role %q.\n", role)
		return nil
	}

	// Prompt without echo so the token stays out of shell history and logs.
	if key == "" {
		fmt.Print("Key to revoke: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		fmt.Println()
		key = strings.TrimSpace(string(raw))
	}
	if key == "" {
		return fmt.Errorf("nothing to revoke: provide --key or --role")
	}

	if err := keys.RevokeKey(ctx, key); err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}
	fmt.Println("Key revoked.")
	return nil
}

// ---------- key export / import ----------

// keyBackup is the YAML layout of a key backup file. Backups contain raw
// bearer credentials and should be treated like any other secret material.
type keyBackup struct {
	Keys []backupEntry `yaml:"keys"`
}

type backupEntry struct {
	Key   string `yaml:"key"`
	Level int16  `yaml:"lvl"`
	Role  string `yaml:"role"`
}

func newKeyExportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export admin keys to a YAML backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyExport(file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "modledger-keys.yaml", "Output file")
	return cmd
}

func runKeyExport(file string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	keys, err := st.ListKeys(context.Background())
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	backup := keyBackup{Keys: make([]backupEntry, 0, len(keys))}
	for _, k := range keys {
		backup.Keys = append(backup.Keys, backupEntry{Key: k.Key, Level: k.Level, Role: k.Role})
	}

	out, err := yaml.Marshal(&backup)
	if err != nil {
		return fmt.Errorf("marshal backup: %w", err)
	}
	if err := os.WriteFile(file, out, 0600); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	fmt.Printf("Exported %d keys to %s\n", len(backup.Keys), file)
	return nil
}

func newKeyImportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import admin keys from a YAML backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyImport(file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "modledger-keys.yaml", "Input file")
	return cmd
}

func runKeyImport(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	var backup keyBackup
	if err := yaml.Unmarshal(data, &backup); err != nil {
		return fmt.Errorf("parse backup: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	imported := 0
	for _, entry := range backup.Keys {
		if len(entry.Key) != model.KeyLength || entry.Role == "" {
			fmt.Fprintf(os.Stderr, "skipping malformed entry (role %q)\n", entry.Role)
			continue
		}
		if err := st.InsertKey(ctx, entry.Key, entry.Level, entry.Role); err != nil {
			// Duplicates are expected when re-importing a backup.
			fmt.Fprintf(os.Stderr, "skipping key for role %q: %v\n", entry.Role, err)
			continue
		}
		imported++
	}

	fmt.Printf("Imported %d of %d keys from %s\n", imported, len(backup.Keys), file)
	return nil
}
