// Package storagetest holds the behaviour every storage.Driver must share.
// Driver test suites call ItBehavesLikeADriver from inside a Describe.
package storagetest

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/storage"
)

// NewReading returns a populated reading created at the given offset from a
// fixed base time.
func NewReading(id string, kind storage.Kind, offset time.Duration) *storage.Reading {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &storage.Reading{
		ID:     id,
		Kind:   kind,
		Birth:  time.Date(1990, 5, 15, 14, 30, 0, 0, time.FixedZone("CST", 8*3600)),
		Gender: bazi.Male,
		Chart: bazi.Chart{
			Year:  bazi.Pillar{Stem: "庚", Branch: "午"},
			Month: bazi.Pillar{Stem: "辛", Branch: "巳"},
			Day:   bazi.Pillar{Stem: "庚", Branch: "辰"},
			Hour:  bazi.Pillar{Stem: "癸", Branch: "未"},
			Lunar: bazi.LunarDate{Year: 1990, Month: 4, Day: 21},
		},
		Model:     "test-model",
		Question:  "请分析我的八字",
		Thinking:  "思考",
		Content:   "回答 " + id,
		CreatedAt: base.Add(offset),
	}
}

// ItBehavesLikeADriver registers the shared driver specs. newDriver is called
// before each spec and the returned driver is closed after it.
func ItBehavesLikeADriver(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	It("stores and retrieves a reading", func() {
		r := NewReading("r1", storage.KindAnalysis, 0)
		Expect(driver.Put(ctx, r)).To(Succeed())

		got, err := driver.Get(ctx, "r1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal("r1"))
		Expect(got.Kind).To(Equal(storage.KindAnalysis))
		Expect(got.Birth.Equal(r.Birth)).To(BeTrue())
		Expect(got.Gender).To(Equal(bazi.Male))
		Expect(got.Chart).To(Equal(r.Chart))
		Expect(got.Question).To(Equal(r.Question))
		Expect(got.Thinking).To(Equal(r.Thinking))
		Expect(got.Content).To(Equal(r.Content))
		Expect(got.CreatedAt.Equal(r.CreatedAt)).To(BeTrue())
	})

	It("returns NotFoundError for a missing reading", func() {
		_, err := driver.Get(ctx, "missing")
		Expect(storage.IsNotFound(err)).To(BeTrue())
		Expect(err).To(MatchError("reading not found: missing"))
	})

	It("rejects a nil reading", func() {
		Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrNilReading))
	})

	It("replaces a reading stored under the same ID", func() {
		r := NewReading("r1", storage.KindAnalysis, 0)
		Expect(driver.Put(ctx, r)).To(Succeed())

		r.Content = "updated"
		Expect(driver.Put(ctx, r)).To(Succeed())

		got, err := driver.Get(ctx, "r1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Content).To(Equal("updated"))

		all, err := driver.List(ctx, storage.ListOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(1))
	})

	It("lists newest first with kind filter and limit", func() {
		for i := range 4 {
			kind := storage.KindAnalysis
			if i%2 == 1 {
				kind = storage.KindMindmap
			}
			r := NewReading(fmt.Sprintf("r%d", i), kind, time.Duration(i)*time.Minute)
			Expect(driver.Put(ctx, r)).To(Succeed())
		}

		all, err := driver.List(ctx, storage.ListOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(all)).To(Equal([]string{"r3", "r2", "r1", "r0"}))

		maps, err := driver.List(ctx, storage.ListOptions{Kind: storage.KindMindmap})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(maps)).To(Equal([]string{"r3", "r1"}))

		limited, err := driver.List(ctx, storage.ListOptions{Limit: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(ids(limited)).To(Equal([]string{"r3", "r2"}))
	})

	It("returns an empty list for an empty store", func() {
		all, err := driver.List(ctx, storage.ListOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(BeEmpty())
	})
}

func ids(rs []*storage.Reading) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
