package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("version info", func() {
	var saved [3]string

	BeforeEach(func() {
		saved = [3]string{Version, Sha, Buildtime}
		DeferCleanup(func() { Version, Sha, Buildtime = saved[0], saved[1], saved[2] })
	})

	It("describes the build", func() {
		Version, Sha, Buildtime = "v1.2.0", "abc123", "2026-01-01"
		Expect(VersionInfo()).To(Equal("Version: v1.2.0\nSha: abc123\nBuilt at: 2026-01-01\n"))
	})

	It("names the client in the user agent", func() {
		Version = "v1.2.0"
		Expect(UserAgent()).To(Equal("cloudchat/v1.2.0"))
	})
})
