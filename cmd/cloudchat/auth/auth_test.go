package authcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/cloudchat/cmd/cloudchat/auth"
	"github.com/papercomputeco/cloudchat/pkg/credentials"
)

const target = "https://chat.example.com"

var _ = Describe("Auth Command", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	newCmd := func(stdin string, args ...string) *cobra.Command {
		cmd := authcmder.NewAuthCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .cloudchat/ config directory")
		cmd.SetIn(bytes.NewBufferString(stdin))
		cmd.SetOut(out)
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("NewAuthCmd", func() {
		It("creates a command with expected properties", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Use).To(Equal("auth"))
			Expect(cmd.Short).NotTo(BeEmpty())
		})

		It("has --list, --remove and --api-target flags", func() {
			cmd := authcmder.NewAuthCmd()
			Expect(cmd.Flags().Lookup("list")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("remove")).NotTo(BeNil())
			Expect(cmd.Flags().Lookup("api-target")).NotTo(BeNil())
		})
	})

	Describe("storing a token", func() {
		It("reads the token from piped stdin", func() {
			cmd := newCmd("  id-token-123\n", "--api-target", target+"/")
			Expect(cmd.Execute()).To(Succeed())

			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			tok, err := mgr.GetToken(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(tok).To(Equal("id-token-123"))
			Expect(out.String()).To(ContainSubstring("Stored token"))
		})

		It("rejects an empty token", func() {
			cmd := newCmd("\n", "--api-target", target)
			Expect(cmd.Execute()).To(HaveOccurred())
		})

		It("fails when stdin is empty", func() {
			cmd := newCmd("", "--api-target", target)
			err := cmd.Execute()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no input"))
		})

		It("rejects positional arguments", func() {
			cmd := newCmd("tok\n", "extra")
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})

	Describe("--list flag", func() {
		It("shows no tokens when none stored", func() {
			cmd := newCmd("", "--list")
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No stored tokens"))
		})

		It("lists stored backends", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetToken(target, "tok")).To(Succeed())

			cmd := newCmd("", "--list")
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring(target))
		})
	})

	Describe("--remove flag", func() {
		It("removes the token for the backend", func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetToken(target, "tok")).To(Succeed())

			cmd := newCmd("", "--remove", "--api-target", target)
			Expect(cmd.Execute()).To(Succeed())

			tok, err := mgr.GetToken(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(tok).To(BeEmpty())
		})
	})
})
