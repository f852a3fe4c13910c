package gemini_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chataize/semantic-index/pkg/embeddings/gemini"
)

var _ = Describe("NewEmbedder", func() {
	It("requires an API key", func() {
		_, err := gemini.NewEmbedder(context.Background(), gemini.EmbedderConfig{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("api key"))
	})

	It("defaults the model", func() {
		e, err := gemini.NewEmbedder(context.Background(), gemini.EmbedderConfig{APIKey: "test-key"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Model()).To(Equal(gemini.DefaultEmbeddingModel))
		Expect(e.Close()).To(Succeed())
	})

	It("keeps an explicit model", func() {
		e, err := gemini.NewEmbedder(context.Background(), gemini.EmbedderConfig{
			APIKey: "test-key",
			Model:  "text-embedding-004",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Model()).To(Equal("text-embedding-004"))
	})
})
