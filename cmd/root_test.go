package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesweep/cmd"
)

var _ = Describe("pipesweep", func() {
	var (
		stdout *bytes.Buffer
		stderr *bytes.Buffer
		dir    string
	)

	BeforeEach(func() {
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
		dir = GinkgoT().TempDir()
	})

	execute := func(args ...string) error {
		root := cmd.NewRootCmd(stdout, stderr)
		root.SetArgs(args)
		return root.Execute()
	}

	writeScenarios := func() string {
		path := filepath.Join(dir, "scenarios.yaml")
		Expect(os.WriteFile(path, []byte(`scenarios:
  - name: basic
    banner: Basic pipeline simulation...
    config: {core: MinorCPU}
`), 0o644)).To(Succeed())
		return path
	}

	It("should list the reference scenarios", func() {
		Expect(execute("scenarios")).To(Succeed())

		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(HavePrefix("basic"))
		Expect(lines[1]).To(ContainSubstring("bp=BiModeBP"))
		Expect(lines[3]).To(ContainSubstring("threads=2"))
	})

	It("should run scenarios into the output file", func() {
		output := filepath.Join(dir, "output.txt")
		statsFile := filepath.Join(dir, "stats.txt")

		err := execute("run",
			"--output", output,
			"--stats-file", statsFile,
			"--scenarios", writeScenarios(),
			"--workload-stdout")
		Expect(err).NotTo(HaveOccurred())

		Expect(stdout.String()).To(ContainSubstring("Hello world!\n"))
		Expect(stdout.String()).To(HaveSuffix("Simulation results have been written to " + output + "\n"))

		report, err := os.ReadFile(output)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(report)).To(ContainSubstring("Basic pipeline simulation...\nStarting simulation...\n"))
		Expect(string(report)).To(ContainSubstring("because exiting with last active thread context"))
		Expect(string(report)).To(MatchRegexp(`Instructions committed: \d+`))

		_, err = os.Stat(statsFile)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should honor the instruction limit", func() {
		output := filepath.Join(dir, "output.txt")

		err := execute("run", "--output", output, "--scenarios", writeScenarios(), "--max-insts", "5")
		Expect(err).NotTo(HaveOccurred())

		report, err := os.ReadFile(output)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(report)).To(ContainSubstring("because a thread reached the max instruction count"))
		Expect(string(report)).To(ContainSubstring("Instructions committed: 5\n"))
	})

	It("should load a timing configuration", func() {
		timing := filepath.Join(dir, "timing.yaml")
		Expect(os.WriteFile(timing, []byte("branch_mispredict_penalty: 12\n"), 0o644)).To(Succeed())

		err := execute("run",
			"--output", filepath.Join(dir, "output.txt"),
			"--scenarios", writeScenarios(),
			"--timing-config", timing)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject an invalid log level", func() {
		err := execute("scenarios", "--log-level", "loud")
		Expect(err).To(MatchError(ContainSubstring("invalid log level")))
	})

	It("should fail on a missing scenario file", func() {
		err := execute("run", "--output", filepath.Join(dir, "output.txt"),
			"--scenarios", filepath.Join(dir, "missing.yaml"))
		Expect(err).To(HaveOccurred())
	})
})
