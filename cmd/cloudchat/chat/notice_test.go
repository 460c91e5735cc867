package chatcmder

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cloudchat/pkg/session"
)

var _ = Describe("screenNotice", func() {
	var (
		out    *bytes.Buffer
		notice *screenNotice
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		notice = &screenNotice{w: out, target: "http://localhost:8000"}
	})

	It("stays quiet when chat opens already signed in", func() {
		notice.Navigate(session.ScreenChat)
		Expect(out.String()).To(BeEmpty())
	})

	It("prints the sign-in hint on sign-out and confirms the next sign-in", func() {
		notice.Navigate(session.ScreenLogin)
		Expect(out.String()).To(ContainSubstring("Signed out."))
		Expect(out.String()).To(ContainSubstring("cloudchat auth"))

		out.Reset()
		notice.Navigate(session.ScreenChat)
		Expect(out.String()).To(ContainSubstring("Signed in"))

		out.Reset()
		notice.Navigate(session.ScreenChat)
		Expect(out.String()).To(BeEmpty())
	})

	It("confirms sign-in after starting without a token", func() {
		notice.noteSignedOut()
		notice.Navigate(session.ScreenChat)
		Expect(out.String()).To(ContainSubstring("Signed in"))
	})
})
