package semantic_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chataize/semantic-index/pkg/semantic"
	testutils "github.com/chataize/semantic-index/pkg/utils/test"
	"github.com/chataize/semantic-index/pkg/vector"
)

var _ = Describe("Search", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		db       *semantic.Database[string]
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()

		embedder.Set("animal", []float32{1, 0, 0})
		embedder.Set("food", []float32{0, 1, 0})

		embedder.Set("cat", []float32{0.9, 0.1, 0})
		embedder.Set("dog", []float32{0.8, 0.2, 0})
		embedder.Set("fish", []float32{0.5, 0.1, 0.4})
		embedder.Set("apple", []float32{0.1, 0.9, 0})
		embedder.Set("banana", []float32{0, 1, 0})
		embedder.Set("orange", []float32{0.2, 0.6, 0.2})

		var err error
		db, err = semantic.New[string](embedder)
		Expect(err).NotTo(HaveOccurred())

		n, err := db.AddRange(ctx, "cat", "dog", "fish", "apple", "banana", "orange")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(6))
	})

	It("finds animals for an animal query", func() {
		res, err := db.SearchText(ctx, "animal", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]string{"cat", "dog"}))
	})

	It("finds fruit for a food query", func() {
		res, err := db.SearchText(ctx, "food", 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]string{"banana", "apple"}))
	})

	It("returns scores in descending order", func() {
		res, err := db.SearchScored(ctx, []float32{1, 0, 0}, 6)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(HaveLen(6))
		for i := 1; i < len(res); i++ {
			Expect(res[i-1].Score).To(BeNumerically(">=", res[i].Score))
		}
		Expect(res[0].Item).To(Equal("cat"))
		Expect(res[0].Score).To(BeNumerically("~", 0.9, 1e-6))
	})

	It("returns nothing for k = 0 without calling the provider", func() {
		before := embedder.TotalCalls()
		res, err := db.SearchText(ctx, "animal", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(BeEmpty())
		Expect(embedder.TotalCalls()).To(Equal(before))
	})

	It("returns every record when k exceeds the count", func() {
		res, err := db.Search(ctx, []float32{0, 1, 0}, 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(HaveLen(6))
		Expect(res[0]).To(Equal("banana"))
	})

	It("breaks ties by insertion order", func() {
		_, err := db.AddRecord(semantic.Record[string]{Payload: "twin", Embedding: []float32{0, 1, 0}})
		Expect(err).NotTo(HaveOccurred())

		res, err := db.Search(ctx, []float32{0, 1, 0}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal([]string{"banana", "twin"}))
	})

	It("fails fast on a query of the wrong dimensionality", func() {
		_, err := db.Search(ctx, []float32{1, 0}, 3)
		Expect(err).To(MatchError(semantic.ErrValidation))
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
	})

	It("checks pinned dimensions on an empty store", func() {
		pinned, err := semantic.New[string](embedder, semantic.WithDimensions[string](3))
		Expect(err).NotTo(HaveOccurred())

		_, err = pinned.Search(ctx, []float32{1, 0}, 2)
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))

		res, err := pinned.Search(ctx, []float32{1, 0, 0}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(BeEmpty())
	})

	It("accepts any query on an empty unpinned store", func() {
		empty, err := semantic.New[string](embedder)
		Expect(err).NotTo(HaveOccurred())

		res, err := empty.Search(ctx, []float32{1, 0}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(BeEmpty())
	})

	It("rejects empty queries", func() {
		_, err := db.Search(ctx, nil, 3)
		Expect(err).To(MatchError(semantic.ErrValidation))

		_, err = db.SearchText(ctx, "", 3)
		Expect(err).To(MatchError(semantic.ErrValidation))
	})

	It("surfaces provider errors", func() {
		embedder.FailOn = "animal"
		_, err := db.SearchText(ctx, "animal", 2)
		Expect(err).To(MatchError(vector.ErrEmbedding))
	})

	It("returns nothing from an empty store", func() {
		db.Clear()
		res, err := db.Search(ctx, []float32{1, 0}, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(BeEmpty())
	})

	Describe("SearchFirst", func() {
		It("returns the best match", func() {
			best, ok, err := db.SearchFirstText(ctx, "food")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(best).To(Equal("banana"))

			best, ok, err = db.SearchFirst(ctx, []float32{0, 0, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(best).To(Equal("fish"))
		})

		It("reports no match on an empty store", func() {
			db.Clear()
			best, ok, err := db.SearchFirst(ctx, []float32{1, 0, 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(best).To(BeEmpty())
		})
	})

	Describe("SearchObject", func() {
		It("serializes structured queries before embedding", func() {
			query := map[string]string{"kind": "pet"}
			embedder.Set(`{"kind":"pet"}`, []float32{1, 0, 0})

			res, err := db.SearchObject(ctx, query, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal([]string{"cat"}))

			best, ok, err := db.SearchFirstObject(ctx, query)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(best).To(Equal("cat"))
		})

		It("rejects nil", func() {
			_, err := db.SearchObject(ctx, nil, 1)
			Expect(err).To(MatchError(semantic.ErrValidation))
		})
	})
})

var _ = Describe("Text", func() {
	It("passes strings through", func() {
		Expect(semantic.Text("hello")).To(Equal("hello"))
	})

	It("reads byte slices as text", func() {
		Expect(semantic.Text([]byte("bytes"))).To(Equal("bytes"))
	})

	It("encodes everything else as JSON", func() {
		Expect(semantic.Text(struct {
			Name string `json:"name"`
		}{Name: "x"})).To(Equal(`{"name":"x"}`))
	})
})
