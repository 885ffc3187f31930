package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/bazi/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets credentials.toml in the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.tianapi]
api_key = "tian-key"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(HaveKeyWithValue("tianapi", credentials.ProviderCredential{APIKey: "tian-key"}))
		})

		It("returns an error for malformed TOML", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte("not valid [[["), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("persists credentials with restricted permissions", func() {
			Expect(mgr.Save(&credentials.Credentials{
				Providers: map[string]credentials.ProviderCredential{
					"siliconflow": {APIKey: "sk-test"},
				},
			})).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns an error for nil credentials", func() {
			Expect(mgr.Save(nil)).To(HaveOccurred())
		})
	})

	Describe("SetKey, GetKey and RemoveKey", func() {
		It("overwrites an existing key and keeps the others", func() {
			Expect(mgr.SetKey("tianapi", "old")).To(Succeed())
			Expect(mgr.SetKey("siliconflow", "sk-sf")).To(Succeed())
			Expect(mgr.SetKey("tianapi", "new")).To(Succeed())

			key, err := mgr.GetKey("tianapi")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("new"))

			key, err = mgr.GetKey("siliconflow")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-sf"))
		})

		It("returns an empty string for an unknown provider", func() {
			key, err := mgr.GetKey("nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("removes a key, and removing a missing one is a no-op", func() {
			Expect(mgr.SetKey("tianapi", "k")).To(Succeed())
			Expect(mgr.RemoveKey("tianapi")).To(Succeed())
			Expect(mgr.RemoveKey("tianapi")).To(Succeed())

			key, err := mgr.GetKey("tianapi")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})
	})

	Describe("ListProviders", func() {
		It("returns stored providers in sorted order", func() {
			Expect(mgr.SetKey("tianapi", "1")).To(Succeed())
			Expect(mgr.SetKey("siliconflow", "2")).To(Succeed())

			providers, err := mgr.ListProviders()
			Expect(err).NotTo(HaveOccurred())
			Expect(providers).To(Equal([]string{"siliconflow", "tianapi"}))
		})
	})

	Describe("Resolve", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("TIANAPI_KEY", "")
			GinkgoT().Setenv("SILICONFLOW_API_KEY", "")
		})

		It("prefers the environment variable", func() {
			Expect(mgr.SetKey("siliconflow", "stored")).To(Succeed())
			GinkgoT().Setenv("SILICONFLOW_API_KEY", " from-env ")

			key, err := mgr.Resolve("siliconflow")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("from-env"))
		})

		It("falls back to the stored key", func() {
			Expect(mgr.SetKey("tianapi", "stored")).To(Succeed())

			key, err := mgr.Resolve("tianapi")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("stored"))
		})

		It("returns ErrMissingKey naming the variable to set", func() {
			_, err := mgr.Resolve("tianapi")
			Expect(err).To(MatchError(credentials.ErrMissingKey))
			Expect(err.Error()).To(ContainSubstring("TIANAPI_KEY"))
		})
	})
})

var _ = Describe("providers", func() {
	DescribeTable("EnvVarForProvider",
		func(provider, env string) {
			Expect(credentials.EnvVarForProvider(provider)).To(Equal(env))
		},
		Entry("tianapi", "tianapi", "TIANAPI_KEY"),
		Entry("siliconflow", "siliconflow", "SILICONFLOW_API_KEY"),
		Entry("unknown", "openai", ""),
	)

	It("supports exactly the two upstream services", func() {
		Expect(credentials.SupportedProviders()).To(ConsistOf("tianapi", "siliconflow"))
		Expect(credentials.IsSupportedProvider("tianapi")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("anthropic")).To(BeFalse())
	})
})
