package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/kumarlokesh/sysd/exercises/tst/internal/config"
	"github.com/kumarlokesh/sysd/exercises/tst/internal/store"
)

func do(client *http.Client, method, target string, body []byte) *http.Response {
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	Expect(err).NotTo(HaveOccurred())
	resp, err := client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decode(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
}

var testServerConfig = config.ServerConfig{Host: "127.0.0.1", Port: 0}

var _ = Describe("Server", func() {
	var (
		ts     *httptest.Server
		client *http.Client
		st     *store.TrieStore
	)

	keyURL := func(k string) string {
		return ts.URL + "/keys/" + url.PathEscape(k)
	}

	BeforeEach(func() {
		st = store.NewTrieStore(zerolog.Nop(), 32)
		server := NewServer(testServerConfig, st, zerolog.Nop())
		ts = httptest.NewServer(server.Handler())
		client = ts.Client()
	})

	AfterEach(func() {
		ts.Close()
	})

	Describe("PUT /keys/{key}", func() {
		It("creates a new key", func() {
			resp := do(client, http.MethodPut, keyURL("apple"), []byte("red"))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var body struct {
				Key     string `json:"key"`
				Created bool   `json:"created"`
			}
			decode(resp, &body)
			Expect(body.Key).To(Equal("apple"))
			Expect(body.Created).To(BeTrue())
		})

		It("keeps the first value unless asked to overwrite", func() {
			resp := do(client, http.MethodPut, keyURL("apple"), []byte("red"))
			resp.Body.Close()

			resp = do(client, http.MethodPut, keyURL("apple"), []byte("green"))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()

			resp = do(client, http.MethodGet, keyURL("apple"), nil)
			value, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			Expect(string(value)).To(Equal("red"))

			resp = do(client, http.MethodPut, keyURL("apple")+"?overwrite=true", []byte("green"))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()

			resp = do(client, http.MethodGet, keyURL("apple"), nil)
			value, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
			Expect(string(value)).To(Equal("green"))
		})

		It("rejects keys above the limit", func() {
			resp := do(client, http.MethodPut, keyURL("this-key-is-definitely-longer-than-32-bytes"), []byte("v"))
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed overwrite flag", func() {
			resp := do(client, http.MethodPut, keyURL("apple")+"?overwrite=maybe", []byte("v"))
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("accepts keys with reserved and binary bytes", func() {
			k := "a/b?c d\x01\xff"
			resp := do(client, http.MethodPut, keyURL(k), []byte("odd"))
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			resp.Body.Close()

			got, err := st.Get(context.Background(), k)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]byte("odd")))
		})

		It("stays healthy with high-byte keys stored", func() {
			for _, k := range []string{"caf\xc3\xa9", "\x80", "\x80\xff"} {
				resp := do(client, http.MethodPut, keyURL(k), []byte("v"))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()
			}

			resp := do(client, http.MethodGet, ts.URL+"/healthz", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("stores dot segment keys as they are", func() {
			for _, k := range []string{".", ".."} {
				resp := do(client, http.MethodPut, keyURL(k), []byte("dots"+k))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated), "key %q", k)
				resp.Body.Close()

				resp = do(client, http.MethodGet, keyURL(k), nil)
				Expect(resp.StatusCode).To(Equal(http.StatusOK), "key %q", k)
				body, err := io.ReadAll(resp.Body)
				resp.Body.Close()
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(Equal("dots" + k))
			}

			size, err := st.Size(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(size).To(Equal(2))
		})
	})

	Describe("GET /keys/{key}", func() {
		It("returns 404 for a missing key", func() {
			resp := do(client, http.MethodGet, keyURL("missing"), nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns 404 for a prefix of a stored key", func() {
			resp := do(client, http.MethodPut, keyURL("apple"), []byte("red"))
			resp.Body.Close()

			resp = do(client, http.MethodGet, keyURL("app"), nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("echoes the request id", func() {
			req, err := http.NewRequest(http.MethodGet, keyURL("missing"), nil)
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set(requestIDHeader, "req-123")
			resp, err := client.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get(requestIDHeader)).To(Equal("req-123"))
		})

		It("generates a request id when none is given", func() {
			resp := do(client, http.MethodGet, keyURL("missing"), nil)
			defer resp.Body.Close()
			Expect(resp.Header.Get(requestIDHeader)).NotTo(BeEmpty())
		})
	})

	Describe("DELETE /keys/{key}", func() {
		It("removes the key and returns its value", func() {
			resp := do(client, http.MethodPut, keyURL("aaa"), []byte("x"))
			resp.Body.Close()
			resp = do(client, http.MethodPut, keyURL("aaaa"), []byte("y"))
			resp.Body.Close()

			resp = do(client, http.MethodDelete, keyURL("aaa"), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var entry store.Entry
			decode(resp, &entry)
			Expect(entry.Key).To(Equal("aaa"))
			Expect(entry.Value).To(Equal([]byte("x")))

			resp = do(client, http.MethodDelete, keyURL("aaa"), nil)
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp = do(client, http.MethodGet, keyURL("aaaa"), nil)
			value, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			Expect(string(value)).To(Equal("y"))
		})
	})

	Describe("GET /keys", func() {
		BeforeEach(func() {
			for _, k := range []string{"team", "tea", "ten", "apple"} {
				resp := do(client, http.MethodPut, keyURL(k), []byte(k))
				resp.Body.Close()
			}
		})

		It("lists keys under a prefix in order", func() {
			resp := do(client, http.MethodGet, ts.URL+"/keys?prefix=te", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body struct {
				Prefix string        `json:"prefix"`
				Keys   []store.Entry `json:"keys"`
			}
			decode(resp, &body)
			Expect(body.Prefix).To(Equal("te"))

			keys := make([]string, 0, len(body.Keys))
			for _, e := range body.Keys {
				keys = append(keys, e.Key)
			}
			Expect(keys).To(Equal([]string{"tea", "team", "ten"}))
		})

		It("reports the size", func() {
			resp := do(client, http.MethodGet, ts.URL+"/stats", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var body map[string]int
			decode(resp, &body)
			Expect(body).To(HaveKeyWithValue("size", 4))
		})

		It("is healthy", func() {
			resp := do(client, http.MethodGet, ts.URL+"/healthz", nil)
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})
})

var _ = Describe("Server with a failing store", func() {
	var (
		ctrl  *gomock.Controller
		mock  *MockStore
		ts    *httptest.Server
		boom  = errors.New("boom")
		scope = gomock.Any()
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		mock = NewMockStore(ctrl)
		ts = httptest.NewServer(NewServer(testServerConfig, mock, zerolog.Nop()).Handler())
	})

	AfterEach(func() {
		ts.Close()
	})

	It("maps store errors to 500", func() {
		mock.EXPECT().Size(scope).Return(0, boom)

		resp := do(ts.Client(), http.MethodGet, ts.URL+"/stats", nil)
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
	})

	It("reports unhealthy when the trie fails validation", func() {
		mock.EXPECT().Ping(scope).Return(boom)

		resp := do(ts.Client(), http.MethodGet, ts.URL+"/healthz", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		var body map[string]string
		decode(resp, &body)
		Expect(body).To(HaveKeyWithValue("error", "boom"))
	})

	It("passes the overwrite flag and body through", func() {
		mock.EXPECT().Put(scope, "k", []byte("v"), true).Return(false, nil)

		resp := do(ts.Client(), http.MethodPut, ts.URL+"/keys/k?overwrite=1", []byte("v"))
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("maps not found from the store to 404", func() {
		mock.EXPECT().Delete(scope, "gone").Return(nil, store.ErrNotFound)

		resp := do(ts.Client(), http.MethodDelete, ts.URL+"/keys/gone", nil)
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})
})
