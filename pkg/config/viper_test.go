package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/bazi/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("exposes the defaults when no file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("chat.model")).To(Equal("Pro/deepseek-ai/DeepSeek-R1"))
		Expect(v.GetFloat64("chat.temperature")).To(Equal(0.7))
		Expect(v.GetString("api.listen")).To(Equal(":8090"))
	})

	It("reads values from config.toml", func() {
		data := "[api]\nlisten = \":9999\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("api.listen")).To(Equal(":9999"))
	})

	It("lets BAZI_ environment variables override the file", func() {
		data := "[chat]\nmodel = \"from-file\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("BAZI_CHAT_MODEL", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("chat.model")).To(Equal("from-env"))
	})

	It("lets bound flags override everything", func() {
		GinkgoT().Setenv("BAZI_API_LISTEN", ":7000")

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		Expect(cmd.Flags().Set("listen", ":6000")).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})
		Expect(v.GetString("api.listen")).To(Equal(":6000"))
	})
})

var _ = Describe("flag registry", func() {
	It("registers flags with their config defaults", func() {
		cmd := &cobra.Command{Use: "test"}
		var (
			model string
			temp  float64
			max   int
			mcp   bool
		)
		config.AddStringFlag(cmd, config.Flags, config.FlagModel, &model)
		config.AddFloatFlag(cmd, config.Flags, config.FlagTemperature, &temp)
		config.AddIntFlag(cmd, config.Flags, config.FlagMaxTokens, &max)
		config.AddBoolFlag(cmd, config.Flags, config.FlagMCP, &mcp)

		Expect(cmd.Flags().Lookup("model").Shorthand).To(Equal("m"))
		Expect(model).To(Equal("Pro/deepseek-ai/DeepSeek-R1"))
		Expect(temp).To(Equal(0.7))
		Expect(max).To(Equal(0))
		Expect(mcp).To(BeFalse())
	})

	It("ignores unknown registry keys", func() {
		cmd := &cobra.Command{Use: "test"}
		var s string
		config.AddStringFlag(cmd, config.Flags, "does-not-exist", &s)
		Expect(cmd.Flags().HasFlags()).To(BeFalse())
	})

	It("gives the mind map command its own model flag", func() {
		cmd := &cobra.Command{Use: "mindmap"}
		var model string
		config.AddStringFlag(cmd, config.Flags, config.FlagMindmapCommand, &model)
		Expect(model).To(Equal("Pro/deepseek-ai/DeepSeek-V3"))
	})
})

var _ = Describe("FromViper", func() {
	It("resolves every layer into a Config", func() {
		tmpDir := GinkgoT().TempDir()
		data := "[storage]\ndriver = \"memory\"\n[events]\nbrokers = \"a:9092, b:9092\"\n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("BAZI_CHAT_MAX_TOKENS", "2048")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Storage.Driver).To(Equal("memory"))
		Expect(cfg.Events.BrokerList()).To(Equal([]string{"a:9092", "b:9092"}))
		Expect(cfg.Chat.MaxTokens).To(Equal(2048))
		Expect(cfg.Chat.Backend).To(Equal("sse"))
		Expect(cfg.Calendar.TimeoutSeconds).To(Equal(15))
	})
})
