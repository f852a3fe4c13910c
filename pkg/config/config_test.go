package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/chataize/semantic-index/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeConfig := func(data string) {
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file and fills the gaps with defaults", func() {
			writeConfig(`version = 0

[database]
duplicate_policy = "skip"
snapshot_backend = "sqlite"

[embedding]
provider = "openai"
model = "text-embedding-3-large"
dimensions = 256
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Database.DuplicatePolicy).To(Equal("skip"))
			Expect(cfg.Database.SnapshotBackend).To(Equal("sqlite"))
			Expect(cfg.Database.SnapshotPath).To(Equal("snapshot.json"))
			Expect(cfg.Index.Path).To(Equal("index.log"))
			Expect(cfg.Embedding.Provider).To(Equal("openai"))
			Expect(cfg.Embedding.Model).To(Equal("text-embedding-3-large"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(256)))
			Expect(cfg.API.Listen).To(Equal(":8081"))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("[database\nduplicate_policy = ")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 99\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 99")))
		})

		It("returns error for an unknown snapshot backend", func() {
			writeConfig("[database]\nsnapshot_backend = \"parquet\"\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unknown snapshot backend")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk with private permissions", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Embedding.APIKey = "sk-secret"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			info, err := os.Stat(c.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets and gets a string key", func() {
			Expect(c.SetConfigValue("index.path", "tags.log")).To(Succeed())
			Expect(c.GetConfigValue("index.path")).To(Equal("tags.log"))
		})

		It("normalizes duplicate policies", func() {
			Expect(c.SetConfigValue("database.duplicate_policy", "THROW")).To(Succeed())
			Expect(c.GetConfigValue("database.duplicate_policy")).To(Equal("reject"))
		})

		It("rejects invalid duplicate policies", func() {
			Expect(c.SetConfigValue("database.duplicate_policy", "merge")).To(HaveOccurred())
		})

		It("rejects unknown snapshot backends", func() {
			Expect(c.SetConfigValue("database.snapshot_backend", "csv")).To(HaveOccurred())
		})

		It("sets a uint key", func() {
			Expect(c.SetConfigValue("embedding.dimensions", "384")).To(Succeed())
			Expect(c.GetConfigValue("embedding.dimensions")).To(Equal("384"))
		})

		It("returns error for invalid uint value", func() {
			Expect(c.SetConfigValue("embedding.dimensions", "lots")).To(MatchError(ContainSubstring("invalid value for embedding.dimensions")))
		})

		It("sets a bool key", func() {
			Expect(c.SetConfigValue("api.watch_snapshot", "true")).To(Succeed())
			Expect(c.GetConfigValue("api.watch_snapshot")).To(Equal("true"))
		})

		It("returns error for unknown key", func() {
			Expect(c.SetConfigValue("proxy.listen", ":1")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.listen")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("returns empty string for key with no default", func() {
			Expect(c.GetConfigValue("embedding.api_key")).To(BeEmpty())
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("embedding.provider", "gemini")).To(Succeed())
			Expect(c.SetConfigValue("embedding.model", "gemini-embedding-001")).To(Succeed())
			Expect(c.GetConfigValue("embedding.provider")).To(Equal("gemini"))
		})
	})

	Describe("ResolvePath", func() {
		It("resolves relative paths inside the config dir", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			abs, err := filepath.Abs(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.ResolvePath("snapshot.json")).To(Equal(filepath.Join(abs, "snapshot.json")))
			Expect(c.ResolvePath("/abs/path")).To(Equal("/abs/path"))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("returns every key once, in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(HaveLen(12))
			Expect(keys[0]).To(Equal("database.duplicate_policy"))
			Expect(keys).To(ContainElement("embedding.cache_dir"))
			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})
	})

	Describe("PresetConfig", func() {
		It("returns provider presets", func() {
			for _, name := range config.ValidPresetNames() {
				cfg, err := config.PresetConfig(name)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Embedding.Provider).To(Equal(name))
			}
		})

		It("rejects unknown presets", func() {
			_, err := config.PresetConfig("anthropic")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("applies defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.FromViper(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("prefers environment variables over the config file", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[api]\nlisten = \":5555\"\n"), 0o600)).To(Succeed())
		GinkgoT().Setenv("SEMIDX_API_LISTEN", ":6666")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":6666"))
	})

	It("rejects an invalid snapshot backend", func() {
		GinkgoT().Setenv("SEMIDX_DATABASE_SNAPSHOT_BACKEND", "csv")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		_, err = config.FromViper(v)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "bindflag-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Registry, config.FlagAPIListen, &listen)

		// Simulate flag being set by user
		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, config.Registry, []string{config.FlagAPIListen})

		Expect(v.GetString("api.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[index]\npath = \"custom.log\"\n"), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var path string
		config.AddStringFlag(cmd, config.Registry, config.FlagIndexPath, &path)

		config.BindRegisteredFlags(v, cmd, config.Registry, []string{config.FlagIndexPath})

		Expect(v.GetString("index.path")).To(Equal("custom.log"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.FlagSet{}, []string{"nonexistent"})

		Expect(v.GetString("api.listen")).To(Equal(config.NewDefaultConfig().API.Listen))
	})

	It("pulls name, shorthand, default and description from the FlagSet", func() {
		cmd := &cobra.Command{Use: "test"}
		var policy string
		config.AddStringFlag(cmd, config.Registry, config.FlagDuplicatePolicy, &policy)

		f := cmd.Flags().Lookup("duplicate-policy")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("p"))
		Expect(f.DefValue).To(Equal("allow"))
	})

	It("registers uint and bool flags", func() {
		cmd := &cobra.Command{Use: "test"}
		var dims uint
		var watch bool
		config.AddUintFlag(cmd, config.Registry, config.FlagEmbeddingDims, &dims)
		config.AddBoolFlag(cmd, config.Registry, config.FlagWatchSnapshot, &watch)

		Expect(cmd.Flags().Lookup("embedding-dimensions")).NotTo(BeNil())
		f := cmd.Flags().Lookup("watch-snapshot")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("false"))
	})
})
