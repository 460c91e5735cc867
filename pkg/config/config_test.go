package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/cloudchat/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
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

		It("loads all config fields", func() {
			writeConfig(`version = 0

[client]
api_target = "https://chat.example.com"
timeout = "5s"

[chat]
record_dir = "/tmp/records"

[log]
json = true

[eventstream]
provider = "kafka"
brokers = ["k1:9092", "k2:9092"]
topic = "chats"
`)
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.APITarget).To(Equal("https://chat.example.com"))
			Expect(cfg.Client.TimeoutDuration()).To(Equal(5 * time.Second))
			Expect(cfg.Chat.RecordDir).To(Equal("/tmp/records"))
			Expect(cfg.Log.JSON).To(BeTrue())
			Expect(cfg.Log.Pretty).To(BeFalse())
			Expect(cfg.EventStream.Provider).To(Equal("kafka"))
			Expect(cfg.EventStream.Brokers).To(Equal([]string{"k1:9092", "k2:9092"}))
			Expect(cfg.EventStream.Topic).To(Equal("chats"))
		})

		It("fills unset fields with defaults", func() {
			writeConfig(`[chat]
record_dir = "/tmp/records"
`)
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			defaults := config.NewDefaultConfig()
			Expect(cfg.Client.APITarget).To(Equal(defaults.Client.APITarget))
			Expect(cfg.Client.Timeout).To(Equal(defaults.Client.Timeout))
			Expect(cfg.EventStream.Provider).To(Equal(config.ProviderNone))
		})

		It("rejects an unsupported version", func() {
			writeConfig("version = 7\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})

		It("rejects malformed TOML", func() {
			writeConfig("[client\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists values with restrictive permissions", func() {
			Expect(c.SetConfigValue("client.api_target", "http://myhost:9000")).To(Succeed())

			got, err := c.GetConfigValue("client.api_target")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("http://myhost:9000"))

			info, err := os.Stat(c.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("splits broker lists", func() {
			Expect(c.SetConfigValue("eventstream.brokers", "k1:9092, k2:9092,")).To(Succeed())

			got, err := c.GetConfigValue("eventstream.brokers")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("k1:9092,k2:9092"))
		})

		It("validates typed values", func() {
			Expect(c.SetConfigValue("client.timeout", "soon")).To(MatchError(ContainSubstring("invalid value for client.timeout")))
			Expect(c.SetConfigValue("log.json", "maybe")).To(MatchError(ContainSubstring("invalid value for log.json")))
			Expect(c.SetConfigValue("eventstream.provider", "redis")).To(MatchError(ContainSubstring("invalid value for eventstream.provider")))
		})

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("proxy.listen", ":8080")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.listen")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every key in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(HaveLen(8))
			Expect(keys[0]).To(Equal("client.api_target"))
			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
			Expect(config.IsValidConfigKey("nope")).To(BeFalse())
		})
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		defaults := config.NewDefaultConfig()
		Expect(cfg.Client).To(Equal(defaults.Client))
		Expect(cfg.Log).To(Equal(defaults.Log))
		Expect(cfg.EventStream.Provider).To(Equal(config.ProviderNone))
		Expect(cfg.EventStream.Topic).To(Equal("cloudchat.exchanges"))
		Expect(cfg.EventStream.Brokers).To(BeEmpty())
	})

	It("reads config file values over defaults", func() {
		data := `[client]
api_target = "https://chat.example.com"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("client.api_target")).To(Equal("https://chat.example.com"))
		Expect(v.GetString("client.timeout")).To(Equal("30s"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[client]
api_target = "https://chat.example.com"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("CLOUDCHAT_CLIENT_API_TARGET", "http://env:1234")
		GinkgoT().Setenv("CLOUDCHAT_EVENTSTREAM_BROKERS", "k1:9092,k2:9092")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Client.APITarget).To(Equal("http://env:1234"))
		Expect(cfg.EventStream.Brokers).To(Equal([]string{"k1:9092", "k2:9092"}))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var target string
		var pretty bool
		config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &target)
		config.AddBoolFlag(cmd, config.ClientFlags, config.FlagLogPretty, &pretty)

		Expect(cmd.Flags().Set("api-target", "http://flag:1")).To(Succeed())
		Expect(cmd.Flags().Set("log-pretty", "true")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget, config.FlagLogPretty, "nonexistent"})

		Expect(v.GetString("client.api_target")).To(Equal("http://flag:1"))
		Expect(v.GetBool("log.pretty")).To(BeTrue())
	})

	It("falls through to config when flag not set", func() {
		data := `[client]
api_target = "http://file:2"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &target)
		config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{config.FlagAPITarget})

		Expect(v.GetString("client.api_target")).To(Equal("http://file:2"))
	})

	It("AddStringFlag pulls name, shorthand, and description from FlagSet", func() {
		cmd := &cobra.Command{Use: "test"}
		var target string
		config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &target)

		f := cmd.Flags().Lookup("api-target")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("a"))
		Expect(f.Usage).To(Equal("Chat backend URL"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Client.APITarget))
	})
})
