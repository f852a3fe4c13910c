package semantic_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chataize/semantic-index/pkg/semantic"
	testutils "github.com/chataize/semantic-index/pkg/utils/test"
	"github.com/chataize/semantic-index/pkg/vector"
)

var _ = Describe("Database", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		db       *semantic.Database[string]
	)

	newDB := func(opts ...semantic.Option[string]) *semantic.Database[string] {
		d, err := semantic.New(embedder, opts...)
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		embedder.Set("a", []float32{1, 0, 0})
		embedder.Set("b", []float32{0, 1, 0})
		embedder.Set("c", []float32{0, 0, 1})
		db = newDB()
	})

	Describe("New", func() {
		It("requires an embedder", func() {
			_, err := semantic.New[string](nil)
			Expect(err).To(MatchError(semantic.ErrValidation))
		})

		It("requires an equality function", func() {
			_, err := semantic.NewFunc[string](embedder, nil)
			Expect(err).To(MatchError(semantic.ErrValidation))
		})

		It("rejects negative dimensions", func() {
			_, err := semantic.New(embedder, semantic.WithDimensions[string](-1))
			Expect(err).To(MatchError(semantic.ErrValidation))
		})

		It("defaults to DuplicateAllow", func() {
			Expect(db.DuplicatePolicy()).To(Equal(semantic.DuplicateAllow))
			Expect(db.Dimensions()).To(BeZero())
		})
	})

	Describe("duplicate policies", func() {
		It("allows duplicates and counts every insert", func() {
			for range 3 {
				stored, err := db.Add(ctx, "a")
				Expect(err).NotTo(HaveOccurred())
				Expect(stored).To(BeTrue())
			}
			Expect(db.Count()).To(Equal(3))
		})

		It("replaces equal records under DuplicateUpdate", func() {
			db.SetDuplicatePolicy(semantic.DuplicateAllow)
			_, err := db.AddRecord(semantic.Record[string]{Payload: "a", Embedding: []float32{0, 1, 0}})
			Expect(err).NotTo(HaveOccurred())
			_, err = db.AddRecord(semantic.Record[string]{Payload: "a", Embedding: []float32{0, 0, 1}})
			Expect(err).NotTo(HaveOccurred())
			_, err = db.Add(ctx, "b")
			Expect(err).NotTo(HaveOccurred())

			db.SetDuplicatePolicy(semantic.DuplicateUpdate)
			stored, err := db.Add(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeTrue())

			recs := db.Records()
			Expect(recs).To(HaveLen(2))
			Expect(recs[0].Payload).To(Equal("b"))
			Expect(recs[1]).To(Equal(semantic.Record[string]{Payload: "a", Embedding: []float32{1, 0, 0}}))
		})

		It("leaves the store alone under DuplicateSkip", func() {
			db = newDB(semantic.WithDuplicatePolicy[string](semantic.DuplicateSkip))
			_, err := db.Add(ctx, "a")
			Expect(err).NotTo(HaveOccurred())

			stored, err := db.Add(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(BeFalse())
			Expect(db.Count()).To(Equal(1))
		})

		It("fails with a DuplicateError under DuplicateReject", func() {
			db = newDB(semantic.WithDuplicatePolicy[string](semantic.DuplicateReject))
			_, err := db.Add(ctx, "a")
			Expect(err).NotTo(HaveOccurred())

			stored, err := db.Add(ctx, "a")
			Expect(stored).To(BeFalse())
			Expect(err).To(MatchError(semantic.ErrAlreadyExists))

			var dup *semantic.DuplicateError
			Expect(errors.As(err, &dup)).To(BeTrue())
			Expect(dup.Payload).To(Equal("a"))
			Expect(db.Count()).To(Equal(1))
		})

		It("compares payloads by equality, not by embedding", func() {
			db = newDB(semantic.WithDuplicatePolicy[string](semantic.DuplicateReject))
			embedder.Set("a2", []float32{1, 0, 0})

			_, err := db.Add(ctx, "a")
			Expect(err).NotTo(HaveOccurred())
			_, err = db.Add(ctx, "a2")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Count()).To(Equal(2))
		})
	})

	Describe("Remove and Contains", func() {
		It("removes every equal record", func() {
			_, _ = db.Add(ctx, "a")
			_, _ = db.Add(ctx, "b")
			_, _ = db.Add(ctx, "a")

			Expect(db.Remove("a")).To(Equal(2))
			Expect(db.Contains("a")).To(BeFalse())
			Expect(db.Contains("b")).To(BeTrue())
			Expect(db.Count()).To(Equal(1))
		})

		It("is a no-op for absent payloads", func() {
			_, _ = db.Add(ctx, "a")
			Expect(db.Remove("zzz")).To(BeZero())
			Expect(db.Count()).To(Equal(1))
		})

		It("forgets the learned dimensionality once empty", func() {
			_, _ = db.Add(ctx, "a")
			Expect(db.Dimensions()).To(Equal(3))

			db.Remove("a")
			Expect(db.Dimensions()).To(BeZero())

			_, err := db.AddRecord(semantic.Record[string]{Payload: "x", Embedding: []float32{1, 2}})
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Dimensions()).To(Equal(2))
		})

		It("clears every record", func() {
			_, _ = db.AddRange(ctx, "a", "b", "c")
			db.Clear()
			Expect(db.Count()).To(BeZero())
			Expect(db.Records()).To(BeEmpty())
		})
	})

	Describe("Records", func() {
		It("returns copies", func() {
			_, _ = db.Add(ctx, "a")
			recs := db.Records()
			recs[0].Embedding[0] = 42

			Expect(db.Records()[0].Embedding).To(Equal([]float32{1, 0, 0}))
		})
	})

	Describe("dimensionality", func() {
		It("rejects records that differ from the first one", func() {
			_, err := db.AddRecord(semantic.Record[string]{Payload: "a", Embedding: []float32{1, 0, 0}})
			Expect(err).NotTo(HaveOccurred())

			_, err = db.AddRecord(semantic.Record[string]{Payload: "b", Embedding: []float32{1, 0}})
			Expect(err).To(MatchError(semantic.ErrValidation))
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))

			var dim *vector.DimensionMismatchError
			Expect(errors.As(err, &dim)).To(BeTrue())
			Expect(dim.Expected).To(Equal(3))
			Expect(dim.Actual).To(Equal(2))
			Expect(db.Count()).To(Equal(1))
		})

		It("enforces pinned dimensions from the first insert", func() {
			db = newDB(semantic.WithDimensions[string](2))
			_, err := db.Add(ctx, "a")
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
			Expect(db.Count()).To(BeZero())
		})

		It("rejects empty embeddings", func() {
			_, err := db.AddRecord(semantic.Record[string]{Payload: "a"})
			Expect(err).To(MatchError(vector.ErrEmptyEmbedding))
		})

		It("treats an empty provider vector as a provider error", func() {
			embedder.Set("void", []float32{})
			_, err := db.Add(ctx, "void")
			Expect(err).To(MatchError(vector.ErrEmbedding))
			Expect(err).To(MatchError(vector.ErrEmptyEmbedding))
		})
	})

	It("rejects payloads with empty text before calling the provider", func() {
		_, err := db.Add(ctx, "")
		Expect(err).To(MatchError(semantic.ErrValidation))

		_, err = db.AddRange(ctx, "a", "")
		Expect(err).To(MatchError(semantic.ErrValidation))
		Expect(embedder.Calls("")).To(BeZero())
		Expect(db.Count()).To(BeZero())
	})

	Describe("provider failures", func() {
		It("leaves the store unchanged", func() {
			_, _ = db.Add(ctx, "a")
			embedder.FailOn = "b"

			stored, err := db.Add(ctx, "b")
			Expect(stored).To(BeFalse())
			Expect(err).To(MatchError(vector.ErrEmbedding))
			Expect(db.Count()).To(Equal(1))
		})

		It("aborts when the context is canceled mid-call", func() {
			embedder.Gate = make(chan struct{})
			cctx, cancel := context.WithCancel(ctx)

			errCh := make(chan error, 1)
			go func() {
				_, err := db.Add(cctx, "a")
				errCh <- err
			}()

			Eventually(func() int { return embedder.Calls("a") }).Should(Equal(1))
			cancel()

			var err error
			Eventually(errCh).Should(Receive(&err))
			Expect(err).To(MatchError(context.Canceled))
			Expect(db.Count()).To(BeZero())
		})
	})

	Describe("concurrency", func() {
		It("serves reads while a provider call is in flight", func() {
			_, err := db.AddRecord(semantic.Record[string]{Payload: "a", Embedding: []float32{1, 0, 0}})
			Expect(err).NotTo(HaveOccurred())

			embedder.Gate = make(chan struct{})
			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				_, err := db.Add(ctx, "b")
				Expect(err).NotTo(HaveOccurred())
			}()
			Eventually(func() int { return embedder.Calls("b") }).Should(Equal(1))

			Expect(db.Count()).To(Equal(1))
			Expect(db.Contains("a")).To(BeTrue())
			res, err := db.Search(ctx, []float32{1, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal([]string{"a"}))

			close(embedder.Gate)
			Eventually(done).Should(BeClosed())
			Expect(db.Count()).To(Equal(2))
		})

		It("keeps every concurrent insert under DuplicateAllow", func() {
			var wg sync.WaitGroup
			for range 50 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := db.Add(ctx, "a")
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()
			Expect(db.Count()).To(Equal(50))
		})

		It("stores exactly one record when concurrent inserts race under DuplicateSkip", func() {
			db.SetDuplicatePolicy(semantic.DuplicateSkip)

			var (
				wg     sync.WaitGroup
				mu     sync.Mutex
				stored int
			)
			for range 20 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					ok, err := db.Add(ctx, "a")
					Expect(err).NotTo(HaveOccurred())
					if ok {
						mu.Lock()
						stored++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			Expect(stored).To(Equal(1))
			Expect(db.Count()).To(Equal(1))
		})
	})

	Describe("AddRange", func() {
		It("inserts in argument order", func() {
			n, err := db.AddRange(ctx, "c", "a", "b")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))

			recs := db.Records()
			Expect([]string{recs[0].Payload, recs[1].Payload, recs[2].Payload}).To(Equal([]string{"c", "a", "b"}))
		})

		It("inserts nothing when any provider call fails", func() {
			_, _ = db.Add(ctx, "a")
			embedder.FailOn = "c"

			n, err := db.AddRange(ctx, "b", "c")
			Expect(err).To(MatchError(vector.ErrEmbedding))
			Expect(n).To(BeZero())
			Expect(db.Count()).To(Equal(1))
		})

		It("inserts nothing when a duplicate is rejected", func() {
			db.SetDuplicatePolicy(semantic.DuplicateReject)
			_, _ = db.Add(ctx, "a")

			_, err := db.AddRange(ctx, "b", "a")
			Expect(err).To(MatchError(semantic.ErrAlreadyExists))
			Expect(db.Contains("b")).To(BeFalse())
		})

		It("applies the policy within the batch", func() {
			db.SetDuplicatePolicy(semantic.DuplicateSkip)
			_, _ = db.Add(ctx, "a")

			n, err := db.AddRange(ctx, "a", "b", "b")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
			Expect(db.Count()).To(Equal(2))
		})

		It("is a no-op without payloads", func() {
			n, err := db.AddRange(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Expect(embedder.TotalCalls()).To(BeZero())
		})
	})

	Describe("custom equality", func() {
		type doc struct {
			ID    int
			Title string
		}

		It("uses the supplied function for duplicate detection", func() {
			docs, err := semantic.NewFunc(embedder,
				func(a, b doc) bool { return a.ID == b.ID },
				semantic.WithDuplicatePolicy[doc](semantic.DuplicateUpdate),
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = docs.Add(ctx, doc{ID: 1, Title: "draft"})
			Expect(err).NotTo(HaveOccurred())
			_, err = docs.Add(ctx, doc{ID: 1, Title: "final"})
			Expect(err).NotTo(HaveOccurred())

			recs := docs.Records()
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].Payload.Title).To(Equal("final"))
			Expect(embedder.Calls(`{"ID":1,"Title":"final"}`)).To(Equal(1))
		})

		It("uses the text function when one is set", func() {
			docs, err := semantic.NewFunc(embedder,
				func(a, b doc) bool { return a.ID == b.ID },
				semantic.WithTextFunc(func(d doc) (string, error) { return d.Title, nil }),
			)
			Expect(err).NotTo(HaveOccurred())

			_, err = docs.Add(ctx, doc{ID: 7, Title: "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs.Records()[0].Embedding).To(Equal([]float32{0, 1, 0}))
		})
	})
})
