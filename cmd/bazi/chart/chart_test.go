package chartcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/bazi"
	"github.com/papercomputeco/bazi/pkg/calendar"
	"github.com/papercomputeco/bazi/pkg/reading"
	testutils "github.com/papercomputeco/bazi/pkg/utils/test"
)

var _ = Describe("chart command", func() {
	var (
		cal   *testutils.MockCalendar
		out   *bytes.Buffer
		birth time.Time
	)

	BeforeEach(func() {
		cal = testutils.NewMockCalendar()
		out = &bytes.Buffer{}
		birth = time.Date(1990, 5, 15, 14, 30, 0, 0, bazi.ChinaStandardTime)
	})

	It("has birth, gender and json flags", func() {
		cmd := NewChartCmd()
		Expect(cmd.Flags().Lookup("birth")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("gender")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("json")).NotTo(BeNil())
	})

	It("fails fast without a birth", func() {
		cmd := NewChartCmd()
		cmd.SetArgs([]string{"--gender", "male"})
		cmd.SilenceUsage = true
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("--birth is required")))
	})

	It("renders the chart table", func() {
		c := &chartCommander{}
		Expect(c.run(context.Background(), out, cal, birth, bazi.Male)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("庚"))
		Expect(out.String()).To(ContainSubstring("癸"))
		Expect(out.String()).To(ContainSubstring("四月廿一"))
	})

	It("prints JSON", func() {
		c := &chartCommander{json: true}
		Expect(c.run(context.Background(), out, cal, birth, bazi.Female)).To(Succeed())

		var summary reading.ChartSummary
		Expect(json.Unmarshal(out.Bytes(), &summary)).To(Succeed())
		Expect(summary.Pillars).To(Equal([]string{"庚午", "辛巳", "庚辰", "癸未"}))
		Expect(summary.Gender).To(Equal(bazi.Female))
	})

	It("passes calendar failures through", func() {
		cal.Err = &calendar.GatewayError{Op: "lunar", Code: 150, Msg: "quota exceeded"}

		c := &chartCommander{}
		err := c.run(context.Background(), out, cal, birth, bazi.Male)
		Expect(errors.Is(err, calendar.ErrGateway)).To(BeTrue())
	})
})
