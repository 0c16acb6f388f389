//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/qfieldsync/internal/config"
	"github.com/joe/qfieldsync/internal/transfer"
)

func TestConfigDescription(t *testing.T) {
	t.Parallel()

	cfg := config.Config{}

	if cfg.Description() == "" {
		t.Error("Description() should not be empty")
	}

	if cfg.Version() == "" {
		t.Error("Version() should not be empty")
	}
}

func TestParse_NoSubcommandIsInteractive(t *testing.T) {
	t.Parallel()

	g := NewWithT(t)

	cfg, err := config.Parse([]string{"--preferences", "/tmp/p.yaml", "--log", "/tmp/q.log"})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(cfg.Interactive).Should(BeTrue())
	g.Expect(cfg.Subcommand()).Should(BeNil())
	g.Expect(cfg.Workers).Should(Equal(config.DefaultWorkers))
	g.Expect(cfg.DefaultDir).ShouldNot(HavePrefix("~"))
	g.Expect(cfg.Preferences).Should(Equal("/tmp/p.yaml"))
}

func TestParse_SyncSubcommand(t *testing.T) {
	t.Parallel()

	g := NewWithT(t)

	cfg, err := config.Parse([]string{
		"--server", "https://cloud.example.org/", "-w", "8",
		"sync", "abc-123", "--dir", "/data/abc", "--mode", "download", "--prefer", "remote", "--filter", "**/*.gpkg",
	})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(cfg.Interactive).Should(BeFalse())
	g.Expect(cfg.Workers).Should(Equal(8))
	g.Expect(cfg.Sync).ShouldNot(BeNil())
	g.Expect(cfg.Sync.ID).Should(Equal("abc-123"))
	g.Expect(cfg.Sync.Dir).Should(Equal("/data/abc"))
	g.Expect(cfg.Sync.Mode).Should(Equal(transfer.ModeDownload))
	g.Expect(cfg.Sync.Prefer).Should(Equal(transfer.ReplaceLocal))
	g.Expect(cfg.Subcommand()).Should(BeIdenticalTo(cfg.Sync))
	g.Expect(cfg.ResolveServerURL("https://stored")).Should(Equal("https://cloud.example.org"))
}

func TestParse_SyncDefaults(t *testing.T) {
	t.Parallel()

	g := NewWithT(t)

	cfg, err := config.Parse([]string{"sync", "abc"})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(cfg.Sync.Mode).Should(Equal(transfer.ModeSync))
	g.Expect(cfg.Sync.Prefer).Should(Equal(transfer.ReplaceRemote))
}

func TestParse_CreateSubcommand(t *testing.T) {
	t.Parallel()

	g := NewWithT(t)

	cfg, err := config.Parse([]string{"create", "roads", "--owner", "team", "--private", "--local-dir", "~/roads"})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(cfg.Create.Name).Should(Equal("roads"))
	g.Expect(cfg.Create.Owner).Should(Equal("team"))
	g.Expect(cfg.Create.Private).Should(BeTrue())
	g.Expect(cfg.Create.LocalDir).ShouldNot(HavePrefix("~"))
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"bad scheme", []string{"--server", "ftp://example.org"}},
		{"no host", []string{"--server", "https://"}},
		{"zero workers", []string{"--workers", "0"}},
		{"bad mode", []string{"sync", "x", "--mode", "sideways"}},
		{"bad sftp dir", []string{"sync", "x", "--dir", "sftp://"}},
		{"bad filter", []string{"sync", "x", "--filter", "[abc"}},
		{"missing id", []string{"delete"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := NewWithT(t)

			_, err := config.Parse(tt.args)
			g.Expect(err).Should(HaveOccurred())
		})
	}
}

func TestResolveServerURL(t *testing.T) {
	t.Parallel()

	g := NewWithT(t)
	cfg := &config.Config{}

	g.Expect(cfg.ResolveServerURL("")).Should(Equal(config.DefaultServerURL))
	g.Expect(cfg.ResolveServerURL("https://stored.example/")).Should(Equal("https://stored.example"))
}

func TestCurrentProjectDir(t *testing.T) {
	t.Parallel()

	g := NewWithT(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	g.Expect(os.WriteFile(file, []byte("x"), 0o600)).Should(Succeed())

	g.Expect((&config.Config{}).CurrentProjectDir()).Should(BeEmpty())
	g.Expect((&config.Config{CurrentProject: "/p/roads/roads.qgz"}).CurrentProjectDir()).Should(Equal("/p/roads"))
	g.Expect((&config.Config{CurrentProject: dir}).CurrentProjectDir()).Should(Equal(dir))
	g.Expect((&config.Config{CurrentProject: file}).CurrentProjectDir()).Should(Equal(dir))
}

func TestLoadEnv(t *testing.T) {
	g := NewWithT(t)

	g.Expect(config.LoadEnv(filepath.Join(t.TempDir(), "missing.env"))).Should(Succeed())

	path := filepath.Join(t.TempDir(), ".env")
	g.Expect(os.WriteFile(path, []byte("QFIELDSYNC_TEST_VALUE=from-file\n"), 0o600)).Should(Succeed())

	t.Setenv("QFIELDSYNC_TEST_VALUE", "")
	g.Expect(os.Unsetenv("QFIELDSYNC_TEST_VALUE")).Should(Succeed())
	g.Expect(config.LoadEnv(path)).Should(Succeed())
	g.Expect(os.Getenv("QFIELDSYNC_TEST_VALUE")).Should(Equal("from-file"))
}
