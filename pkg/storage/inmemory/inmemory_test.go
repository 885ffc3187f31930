package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/storage"
	"github.com/papercomputeco/bazi/pkg/storage/inmemory"
	"github.com/papercomputeco/bazi/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	storagetest.ItBehavesLikeADriver(func() storage.Driver {
		return inmemory.NewDriver()
	})

	It("hands out copies so callers cannot mutate stored readings", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()

		r := storagetest.NewReading("r1", storage.KindMindmap, 0)
		Expect(d.Put(ctx, r)).To(Succeed())
		r.Content = "changed after put"

		got, err := d.Get(ctx, "r1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Content).To(Equal("回答 r1"))

		got.Content = "changed after get"
		again, err := d.Get(ctx, "r1")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Content).To(Equal("回答 r1"))
	})
})
