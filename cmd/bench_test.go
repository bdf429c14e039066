package cmd

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("bench command", func() {
	It("should print the core benchmarks as CSV", func() {
		out := &bytes.Buffer{}
		rootCmd.SetOut(out)
		rootCmd.SetArgs([]string{"bench", "--config=", "--quick", "--format=csv"})

		Expect(rootCmd.Execute()).To(Succeed())

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(HavePrefix("name,cycles"))
		Expect(lines[1]).To(HavePrefix("branch_loop,"))
	})

	It("should reject an unknown format", func() {
		rootCmd.SetOut(&bytes.Buffer{})
		rootCmd.SetArgs([]string{"bench", "--config=", "--quick", "--format=xml"})

		Expect(rootCmd.Execute()).To(MatchError(ContainSubstring("unknown format")))
	})
})
