package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/cloudchat/cmd/cloudchat/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := configcmder.NewConfigCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .cloudchat/ config directory")
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(newCmd("set", "client.api_target", "https://chat.example.com").Execute()).To(Succeed())

			_, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			Expect(newCmd("set", "invalid_key", "value").Execute()).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(newCmd("set", "client.api_target").Execute()).To(HaveOccurred())
			Expect(newCmd("set").Execute()).To(HaveOccurred())
		})

		It("rejects invalid durations", func() {
			Expect(newCmd("set", "client.timeout", "soon").Execute()).To(HaveOccurred())
		})

		It("rejects unknown eventstream providers", func() {
			Expect(newCmd("set", "eventstream.provider", "rabbitmq").Execute()).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(newCmd("set", "eventstream.brokers", "k1:9092, k2:9092").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd("get", "eventstream.brokers").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("k1:9092,k2:9092"))
		})

		It("shows defaults for unset keys", func() {
			Expect(newCmd("get", "client.api_target").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("http://localhost:8000"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd("get", "invalid_key").Execute()).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(newCmd("get").Execute()).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(newCmd("list").Execute()).To(Succeed())
			for _, key := range []string{"client.api_target", "client.timeout", "chat.record_dir", "eventstream.topic"} {
				Expect(out.String()).To(ContainSubstring(key))
			}
		})

		It("shows stored values", func() {
			Expect(newCmd("set", "log.json", "true").Execute()).To(Succeed())

			out.Reset()
			Expect(newCmd("list").Execute()).To(Succeed())
			Expect(out.String()).To(MatchRegexp(`log\.json\s+= "true"`))
		})

		It("rejects any arguments", func() {
			Expect(newCmd("list", "extra").Execute()).To(HaveOccurred())
		})
	})

	Describe("shell completion", func() {
		It("completes config keys for get", func() {
			cmd := configcmder.NewConfigCmd()
			get, _, err := cmd.Find([]string{"get"})
			Expect(err).NotTo(HaveOccurred())

			completions, directive := get.ValidArgsFunction(get, []string{}, "")
			Expect(completions).To(ContainElement("client.api_target"))
			Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))
		})
	})
})
