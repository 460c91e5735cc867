package sessionscmder_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	sessionscmder "github.com/papercomputeco/cloudchat/cmd/cloudchat/sessions"
	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/credentials"
	testutils "github.com/papercomputeco/cloudchat/pkg/utils/test"
)

var _ = Describe("NewSessionsCmd", func() {
	It("has list, show and delete subcommands", func() {
		cmd := sessionscmder.NewSessionsCmd()
		names := []string{}
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("list", "show", "delete"))
	})
})

var _ = Describe("Sessions command execution", func() {
	var (
		tmpDir  string
		backend *testutils.ChatServer
		out     *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := sessionscmder.NewSessionsCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .cloudchat/ config directory")
		cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--config-dir", tmpDir, "--api-target", backend.URL()))
		return cmd.Execute()
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}

		backend = testutils.NewChatServer("secret")
		DeferCleanup(backend.Close)

		backend.AddSession("s1", "Greetings",
			chatapi.Message{Role: chatapi.RoleUser, Content: "Hi"},
			chatapi.Message{Role: chatapi.RoleAssistant, Content: "Hello there"},
		)
	})

	Context("when signed in", func() {
		BeforeEach(func() {
			mgr, err := credentials.NewManager(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetToken(backend.URL(), "secret")).To(Succeed())
		})

		It("lists conversations", func() {
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("s1"))
			Expect(out.String()).To(ContainSubstring("Greetings"))
		})

		It("lists conversations as JSON", func() {
			Expect(run("list", "--json")).To(Succeed())

			var sessions []chatapi.Session
			Expect(json.Unmarshal(out.Bytes(), &sessions)).To(Succeed())
			Expect(sessions).To(HaveLen(1))
			Expect(sessions[0].SessionID).To(Equal("s1"))
		})

		It("shows a conversation", func() {
			Expect(run("show", "s1", "--raw")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Hello there"))
			Expect(out.String()).To(ContainSubstring("(2 messages)"))
		})

		It("fails to show an unknown conversation", func() {
			Expect(run("show", "missing")).To(HaveOccurred())
		})

		It("deletes a conversation", func() {
			Expect(run("delete", "s1")).To(Succeed())
			_, ok := backend.Session("s1")
			Expect(ok).To(BeFalse())
		})

		It("requires an id for show and delete", func() {
			Expect(run("show")).To(HaveOccurred())
			Expect(run("delete")).To(HaveOccurred())
		})
	})

	Context("when signed out", func() {
		It("explains how to sign in", func() {
			err := run("list")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("cloudchat auth"))
		})
	})

	It("builds subcommands with client flags", func() {
		for _, sub := range sessionscmder.NewSessionsCmd().Commands() {
			Expect(sub.Flags().Lookup("api-target")).NotTo(BeNil(), sub.Name())
		}
	})
})
