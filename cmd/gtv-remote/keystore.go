package main

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gtv-remote/gtv-go/pkg/cert"
)

var (
	keystoreShim   bool
	keystoreOutDir string
)

var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "Manage the controller identity",
	Long: `Manage the PKCS#12 keystore holding the controller identity and the
certificate of the paired device. One keystore exists per device (--thing);
relay sessions use a separate "-shim" keystore (--shim).`,
}

var keystoreGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create the controller identity if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runKeystoreGenerate(cfg, keystoreShim, cmd.OutOrStdout())
	},
}

var keystoreShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the identity and paired device certificates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runKeystoreShow(cfg, keystoreShim, cmd.OutOrStdout())
	},
}

var keystoreExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the certificates as PEM files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runKeystoreExport(cfg, keystoreShim, keystoreOutDir, cmd.OutOrStdout())
	},
}

var keystoreResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the keystore; the next connection pairs again",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runKeystoreReset(cfg, keystoreShim, cmd.OutOrStdout())
	},
}

func init() {
	keystoreCmd.PersistentFlags().BoolVar(&keystoreShim, "shim", false, "Use the relay keystore")
	keystoreExportCmd.Flags().StringVarP(&keystoreOutDir, "out", "o", ".", "Output directory")

	keystoreCmd.AddCommand(keystoreGenerateCmd, keystoreShowCmd, keystoreExportCmd, keystoreResetCmd)
	rootCmd.AddCommand(keystoreCmd)
}

func openKeystore(cfg Config, shim bool) *cert.FileStore {
	return cert.NewFileStore(cfg.KeystorePath(shim), cfg.Keystore.Password)
}

func runKeystoreGenerate(cfg Config, shim bool, w io.Writer) error {
	store := openKeystore(cfg, shim)
	id, err := cert.LoadOrCreate(store, cfg.SessionConfig().Identity.ClientName, cfg.Keystore.KeyBits)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Keystore: %s\n", store.Path())
	printCertificate(w, "Identity", id.Certificate)
	return nil
}

func runKeystoreShow(cfg Config, shim bool, w io.Writer) error {
	store := openKeystore(cfg, shim)
	if err := store.Load(); err != nil {
		return err
	}
	id, err := store.Identity()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Keystore: %s\n", store.Path())
	printCertificate(w, "Identity", id.Certificate)

	device, err := store.DeviceCA()
	switch {
	case errors.Is(err, cert.ErrCertNotFound):
		fmt.Fprintln(w, "Device:   not paired")
	case err != nil:
		return err
	default:
		printCertificate(w, "Device", device)
	}
	return nil
}

func runKeystoreExport(cfg Config, shim bool, dir string, w io.Writer) error {
	store := openKeystore(cfg, shim)
	if err := store.Load(); err != nil {
		return err
	}
	id, err := store.Identity()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	base := filepath.Base(cfg.KeystorePath(shim))
	base = base[:len(base)-len(cert.KeystoreExtension)]

	path := filepath.Join(dir, base+".crt")
	if err := cert.WriteCertFile(path, id.Certificate); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	fmt.Fprintf(w, "Wrote %s\n", path)

	device, err := store.DeviceCA()
	if errors.Is(err, cert.ErrCertNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	path = filepath.Join(dir, base+"-device.crt")
	if err := cert.WriteCertFile(path, device); err != nil {
		return fmt.Errorf("write device certificate: %w", err)
	}
	fmt.Fprintf(w, "Wrote %s\n", path)
	return nil
}

func runKeystoreReset(cfg Config, shim bool, w io.Writer) error {
	store := openKeystore(cfg, shim)
	if err := store.Remove(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Removed %s\n", store.Path())
	return nil
}

func printCertificate(w io.Writer, label string, c *x509.Certificate) {
	info := cert.GetCertificateInfo(c)
	fmt.Fprintf(w, "%-9s %s\n", label+":", info.CommonName)
	fmt.Fprintf(w, "  Fingerprint: %s\n", info.Fingerprint)
	fmt.Fprintf(w, "  Valid:       %s to %s\n", info.NotBefore.Format(time.DateOnly), info.NotAfter.Format(time.DateOnly))
	if info.KeyBits > 0 {
		fmt.Fprintf(w, "  Key:         RSA %d\n", info.KeyBits)
	}
	if err := cert.CheckValidity(c, time.Now()); err != nil {
		fmt.Fprintf(w, "  Warning:     %v\n", err)
	}
}
