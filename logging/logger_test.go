package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/andrewpaige1/doomdeck-api/logging"
)

var _ = Describe("New", func() {
	It("should write JSON records", func() {
		var out bytes.Buffer
		logger, err := logging.New(logging.Options{Level: "info", Format: "json", Output: &out})
		Expect(err).NotTo(HaveOccurred())

		logger.Info("GenerateFlashcards: saved chat", "chat_id", "abc")

		var record map[string]any
		Expect(json.Unmarshal(out.Bytes(), &record)).To(Succeed())
		Expect(record).To(HaveKeyWithValue("msg", "GenerateFlashcards: saved chat"))
		Expect(record).To(HaveKeyWithValue("chat_id", "abc"))
	})

	It("should drop records below the level", func() {
		var out bytes.Buffer
		logger, err := logging.New(logging.Options{Level: "warn", Output: &out})
		Expect(err).NotTo(HaveOccurred())
		logger.Info("quiet")
		Expect(out.Len()).To(BeZero())
		logger.Warn("loud")
		Expect(out.String()).To(ContainSubstring("loud"))
	})

	It("should reject unknown formats", func() {
		_, err := logging.New(logging.Options{Format: "xml"})
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("ParseLevel",
		func(value string, expected slog.Level) {
			Expect(logging.ParseLevel(value)).To(Equal(expected))
		},
		Entry("debug", "DEBUG", slog.LevelDebug),
		Entry("warning", "warning", slog.LevelWarn),
		Entry("error", "error", slog.LevelError),
		Entry("fallback", "chatty", slog.LevelInfo),
	)
})
