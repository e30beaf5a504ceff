package config_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/arkbriar/ssmgr-collector/pkg/config"
	"github.com/arkbriar/ssmgr-collector/pkg/env"
)

var _ = Describe("Store", func() {
	var (
		environ *countingEnviron
		store   *config.Store
	)

	BeforeEach(func() {
		environ = newCountingEnviron(validEnviron())
		store = config.NewStore(config.WithEnviron(environ))
	})

	It("returns the same instance without re-reading the environment", func() {
		first, err := store.Get()
		Expect(err).NotTo(HaveOccurred())

		environ.Map["SS_REMOTE_HOST"] = "198.51.100.1"

		second, err := store.Get()
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(BeIdenticalTo(first))
		Expect(second.RemoteHost()).To(Equal("203.0.113.7"))
		Expect(environ.Reads("SS_REMOTE_HOST")).To(Equal(1))
		Expect(environ.Reads("SS_PLUGIN_OPTIONS")).To(Equal(1))
	})

	It("keeps the cached configuration intact across callers", func() {
		environ.Map["SS_PLUGIN_OPTIONS"] = "a=1"

		first, err := store.Get()
		Expect(err).NotTo(HaveOccurred())

		opts := first.Options()
		opts["a"] = "changed"
		opts["b"] = "added"
		delete(opts, "a")

		second, err := store.Get()
		Expect(err).NotTo(HaveOccurred())
		Expect(second.RemoteHost()).To(Equal("203.0.113.7"))
		Expect(second.RemotePort()).To(Equal(uint16(8388)))
		Expect(second.LocalHost()).To(Equal("127.0.0.1"))
		Expect(second.LocalPort()).To(Equal(uint16(1080)))
		Expect(second.Options()).To(Equal(map[string]string{"a": "1"}))
	})

	It("resolves exactly once under concurrent first access", func() {
		const callers = 64

		var (
			wg      sync.WaitGroup
			results = make([]*config.Config, callers)
			start   = make(chan struct{})
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer GinkgoRecover()
				defer wg.Done()
				<-start
				cfg, err := store.Get()
				Expect(err).NotTo(HaveOccurred())
				results[i] = cfg
			}(i)
		}
		close(start)
		wg.Wait()

		for _, cfg := range results {
			Expect(cfg).To(BeIdenticalTo(results[0]))
		}
		Expect(environ.Reads("SS_REMOTE_HOST")).To(Equal(1))
		Expect(environ.Reads("SS_LOCAL_PORT")).To(Equal(1))
	})

	It("caches a resolution failure", func() {
		delete(environ.Map, "SS_LOCAL_HOST")

		_, err := store.Get()
		Expect(err).To(MatchError(env.ErrUnset))

		environ.Map["SS_LOCAL_HOST"] = "127.0.0.1"

		cfg, err := store.Get()
		Expect(cfg).To(BeNil())
		Expect(err).To(MatchError(env.ErrUnset))
		Expect(environ.Reads("SS_LOCAL_HOST")).To(Equal(1))
	})

	It("resolves again after Reset", func() {
		first, err := store.Get()
		Expect(err).NotTo(HaveOccurred())

		environ.Map["SS_PLUGIN_OPTIONS"] = "status=127.0.0.1:6062"
		store.Reset()

		second, err := store.Get()
		Expect(err).NotTo(HaveOccurred())
		Expect(second).NotTo(BeIdenticalTo(first))
		status, ok := second.Option("status")
		Expect(ok).To(BeTrue())
		Expect(status).To(Equal("127.0.0.1:6062"))
		Expect(environ.Reads("SS_REMOTE_HOST")).To(Equal(2))
	})

	Describe("the process-wide store", func() {
		BeforeEach(func() {
			config.Reset()
			for name, value := range validEnviron() {
				GinkgoT().Setenv(name, value)
			}
			GinkgoT().Setenv("SS_PLUGIN_OPTIONS", "a=1;b=2")
		})

		AfterEach(func() {
			config.Reset()
		})

		It("resolves from the process environment", func() {
			cfg, err := config.Get()
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.RemotePort()).To(Equal(uint16(8388)))
			Expect(cfg.Options()).To(Equal(map[string]string{"a": "1", "b": "2"}))

			again, err := config.Default().Get()
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeIdenticalTo(cfg))
		})
	})
})
