package semidxcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	semidxcmder "github.com/chataize/semantic-index/cmd/semidx"
)

// fakeOllama serves /api/embed from a fixed vocabulary.
type fakeOllama struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/embed" {
		http.NotFound(w, r)
		return
	}

	var body struct {
		Input string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.calls++
	v, ok := f.vectors[body.Input]
	f.mu.Unlock()
	if !ok {
		v = []float32{0.1, 0.1, 0.1}
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{v}})
}

func (f *fakeOllama) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ = Describe("NewSemidxCmd", func() {
	It("registers every subcommand", func() {
		cmd := semidxcmder.NewSemidxCmd()
		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements(
			"init", "add", "search", "remove", "count", "refresh",
			"index", "serve", "config", "version",
		))
	})

	It("prints the build metadata", func() {
		cmd := semidxcmder.NewSemidxCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"version"})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(HavePrefix("semidx dev\n"))
		Expect(out.String()).To(ContainSubstring("sha:   HEAD"))
	})

	It("has global debug and config-dir flags", func() {
		cmd := semidxcmder.NewSemidxCmd()
		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})

var _ = Describe("semidx commands", func() {
	var (
		configDir string
		fake      *fakeOllama
		server    *httptest.Server
	)

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		fake = &fakeOllama{vectors: map[string][]float32{
			"cat":    {1, 0, 0},
			"dog":    {0.9, 0.1, 0},
			"apple":  {0, 1, 0},
			"animal": {1, 0.05, 0},
			"wolf":   {1, 0, 0},
			"carrot": {0, 1, 0},
		}}
		server = httptest.NewServer(fake)
		DeferCleanup(server.Close)
	})

	run := func(args ...string) (string, error) {
		cmd := semidxcmder.NewSemidxCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append(args,
			"--config-dir", configDir,
			"--embedding-target", server.URL,
		))
		err := cmd.Execute()
		return ansi.Strip(out.String()), err
	}

	It("adds, searches, counts and removes texts", func() {
		out, err := run("add", "cat", "dog", "apple")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Stored 3 of 3 texts"))

		_, err = os.Stat(filepath.Join(configDir, "snapshot.json"))
		Expect(err).NotTo(HaveOccurred())

		out, err = run("search", "animal", "--top", "2", "--quiet")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Fields(out)).To(Equal([]string{"cat", "dog"}))

		out, err = run("count")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("3"))

		out, err = run("remove", "dog")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Removed 1 records (2 remaining)"))

		out, err = run("search", "animal", "--quiet")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Fields(out)).To(Equal([]string{"cat", "apple"}))
	})

	It("honors the duplicate policy flag", func() {
		_, err := run("add", "cat")
		Expect(err).NotTo(HaveOccurred())

		_, err = run("add", "cat", "--duplicate-policy", "reject")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("already exists"))

		out, err := run("add", "cat", "--duplicate-policy", "skip")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Stored 0 of 1 texts (1 total)"))
	})

	It("reads settings from SEMIDX_ environment variables", func() {
		GinkgoT().Setenv("SEMIDX_DATABASE_SNAPSHOT_PATH", "from-env.json")

		_, err := run("add", "cat")
		Expect(err).NotTo(HaveOccurred())

		_, err = os.Stat(filepath.Join(configDir, "from-env.json"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("stores snapshots in sqlite when configured", func() {
		_, err := run("add", "cat", "apple", "--snapshot-backend", "sqlite", "--snapshot", "store.db")
		Expect(err).NotTo(HaveOccurred())

		out, err := run("search", "animal", "--top", "1", "--quiet", "--snapshot-backend", "sqlite", "--snapshot", "store.db")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.TrimSpace(out)).To(Equal("cat"))
	})

	It("re-embeds on refresh", func() {
		_, err := run("add", "cat")
		Expect(err).NotTo(HaveOccurred())
		before := fake.Calls()

		_, err = run("refresh")
		Expect(err).NotTo(HaveOccurred())
		Expect(fake.Calls()).To(Equal(before + 1))
	})

	It("rejects a non-positive --top", func() {
		_, err := run("search", "animal", "--top", "0")
		Expect(err).To(HaveOccurred())
	})

	It("fails when the provider is unreachable", func() {
		server.Close()
		_, err := run("add", "cat")
		Expect(err).To(HaveOccurred())
	})

	Describe("index", func() {
		It("appends, finds and removes tagged texts", func() {
			_, err := run("index", "add", "wolf", "--tag", "animal", "--tag", "wild")
			Expect(err).NotTo(HaveOccurred())
			_, err = run("index", "add", "carrot", "-t", "vegetable")
			Expect(err).NotTo(HaveOccurred())

			out, err := run("index", "find", "carrot", "--quiet", "--top", "1")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(out)).To(Equal("carrot"))

			out, err = run("index", "find", "carrot", "--tag", "animal", "--quiet")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.TrimSpace(out)).To(Equal("wolf"))

			out, err = run("index", "remove", "--tag", "animal")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Removed 1 lines"))

			out, err = run("count")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`index:\s+1`))
		})

		It("requires a text or tags to remove", func() {
			_, err := run("index", "remove")
			Expect(err).To(HaveOccurred())

			_, err = run("index", "remove", "wolf", "--tag", "animal")
			Expect(err).To(HaveOccurred())
		})

		It("errors when no index path is configured", func() {
			_, err := run("index", "find", "wolf", "--index", "")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no tag index configured"))
		})
	})
})
