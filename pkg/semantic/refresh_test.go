package semantic_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chataize/semantic-index/pkg/semantic"
	testutils "github.com/chataize/semantic-index/pkg/utils/test"
	"github.com/chataize/semantic-index/pkg/vector"
)

var _ = Describe("Refresh", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		db       *semantic.Database[string]
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()

		var err error
		db, err = semantic.New[string](embedder)
		Expect(err).NotTo(HaveOccurred())

		for _, p := range []string{"a", "b"} {
			_, err := db.AddRecord(semantic.Record[string]{Payload: p, Embedding: []float32{1, 0, 0}})
			Expect(err).NotTo(HaveOccurred())
		}
		embedder.Set("a", []float32{0, 1, 0})
		embedder.Set("b", []float32{0, 0, 1})
	})

	It("recomputes every embedding", func() {
		Expect(db.Refresh(ctx)).To(Succeed())

		recs := db.Records()
		Expect(recs[0].Embedding).To(Equal([]float32{0, 1, 0}))
		Expect(recs[1].Embedding).To(Equal([]float32{0, 0, 1}))
	})

	It("changes nothing when a provider call fails", func() {
		embedder.FailOn = "b"
		Expect(db.Refresh(ctx)).To(MatchError(vector.ErrEmbedding))

		for _, rec := range db.Records() {
			Expect(rec.Embedding).To(Equal([]float32{1, 0, 0}))
		}
	})

	It("adopts a new dimensionality when the model changes", func() {
		embedder.Set("a", []float32{1, 0})
		embedder.Set("b", []float32{0, 1})

		Expect(db.Refresh(ctx)).To(Succeed())
		Expect(db.Dimensions()).To(Equal(2))
	})

	It("keeps records added and drops records removed while it runs", func() {
		embedder.Gate = make(chan struct{})
		errCh := make(chan error, 1)
		go func() {
			errCh <- db.Refresh(ctx)
		}()

		Eventually(func() int { return embedder.TotalCalls() }).Should(Equal(2))

		_, err := db.AddRecord(semantic.Record[string]{Payload: "c", Embedding: []float32{0.5, 0.5, 0}})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Remove("b")).To(Equal(1))

		close(embedder.Gate)
		Eventually(errCh).Should(Receive(BeNil()))

		recs := db.Records()
		Expect(recs).To(HaveLen(2))
		Expect(recs[0]).To(Equal(semantic.Record[string]{Payload: "a", Embedding: []float32{0, 1, 0}}))
		Expect(recs[1]).To(Equal(semantic.Record[string]{Payload: "c", Embedding: []float32{0.5, 0.5, 0}}))
	})

	It("is a no-op on an empty store", func() {
		db.Clear()
		Expect(db.Refresh(ctx)).To(Succeed())
		Expect(embedder.TotalCalls()).To(BeZero())
	})
})
