package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/nerdneilsfield/epub-translator/internal/config"
	"github.com/nerdneilsfield/epub-translator/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute 在隔离的环境中运行命令
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EPUB_TRANSLATOR_API_KEY", "")

	cmd := NewRootCommand("test", "abc123", "today")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func sampleBook() test.EPUBSpec {
	return test.EPUBSpec{
		Title:    "CLI Book",
		Language: "en",
		Chapters: []test.Chapter{
			{ID: "c1", Href: "c1.xhtml", Body: "<p>Hello</p>"},
			{ID: "c2", Href: "c2.xhtml", Body: "<h2>World</h2>"},
		},
		TOC: []test.NavPoint{
			{ID: "c1", Label: "One", Src: "c1.xhtml"},
			{Label: "Two", Src: "c2.xhtml"},
		},
	}
}

func TestTranslateCommand(t *testing.T) {
	for _, apiType := range []string{config.APITypeOpenAI, config.APITypeOpenAIOfficial} {
		t.Run(apiType, func(t *testing.T) {
			server := test.NewMockOpenAIServer(t)
			server.SetResponder(func(user string) (string, int) {
				return "[T] " + user, 200
			})
			input := test.WriteEPUB(t, sampleBook())

			out, err := execute(t, input,
				"--api-key", "sk-test",
				"--api-base", server.URL,
				"--api-type", apiType,
				"-t", "de",
				"--no-progress",
			)
			require.NoError(t, err)
			assert.Contains(t, out, "翻译完成")
			assert.Contains(t, out, "API 请求")
			assert.Contains(t, out, "100.0%")

			output := filepath.Join(filepath.Dir(input), "book_translated.epub")
			require.FileExists(t, output)
			assert.Contains(t, test.ReadEntry(t, output, "OEBPS/c1.xhtml"), "<p>[T] Hello</p>")
			assert.Contains(t, test.ReadEntry(t, output, "OEBPS/c2.xhtml"), "<h2>[T] World</h2>")

			requests := server.Requests()
			require.Len(t, requests, 2)
			assert.Contains(t, requests[0].System(), "German")
		})
	}
}

func TestTranslateCommandExplicitOutput(t *testing.T) {
	server := test.NewMockOpenAIServer(t)
	input := test.WriteEPUB(t, sampleBook())
	output := filepath.Join(t.TempDir(), "out.epub")

	_, err := execute(t, input, output, "--api-key", "sk-test", "--api-base", server.URL, "--no-progress")
	require.NoError(t, err)
	assert.FileExists(t, output)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(input), "book_translated.epub"))
}

func TestTranslateCommandPromptFile(t *testing.T) {
	server := test.NewMockOpenAIServer(t)
	input := test.WriteEPUB(t, sampleBook())
	promptFile := filepath.Join(t.TempDir(), "prompt.toml")
	require.NoError(t, os.WriteFile(promptFile, []byte(`prompt = "Render into {target_language} verse."`), 0o644))

	_, err := execute(t, input, "--api-key", "sk-test", "--api-base", server.URL,
		"--prompt-file", promptFile, "-t", "fr", "--no-progress")
	require.NoError(t, err)

	requests := server.Requests()
	require.NotEmpty(t, requests)
	assert.Equal(t, "Render into French verse.", requests[0].System())
}

func TestTranslateCommandErrors(t *testing.T) {
	input := test.WriteEPUB(t, sampleBook())

	t.Run("missing api key", func(t *testing.T) {
		_, err := execute(t, input, "--no-progress")
		assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	})

	t.Run("invalid target", func(t *testing.T) {
		_, err := execute(t, input, "--api-key", "sk-test", "-t", "auto", "--no-progress")
		assert.ErrorIs(t, err, config.ErrInvalidLanguage)
	})

	t.Run("unknown api type", func(t *testing.T) {
		_, err := execute(t, input, "--api-key", "sk-test", "--api-type", "deepl", "--no-progress")
		assert.ErrorIs(t, err, config.ErrUnknownAPIType)
	})

	t.Run("missing input", func(t *testing.T) {
		server := test.NewMockOpenAIServer(t)
		out, err := execute(t, filepath.Join(t.TempDir(), "nope.epub"),
			"--api-key", "sk-test", "--api-base", server.URL, "--no-progress")
		assert.Error(t, err)
		assert.Contains(t, out, "翻译失败")
	})

	t.Run("no arguments", func(t *testing.T) {
		_, err := execute(t)
		assert.Error(t, err)
	})
}

func TestDryRun(t *testing.T) {
	input := test.WriteEPUB(t, sampleBook())

	out, err := execute(t, input, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "预演结果")
	assert.NotContains(t, out, "API 请求")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(input), "book_translated.epub"))
}

func TestModelsCommand(t *testing.T) {
	out, err := execute(t, "models")
	require.NoError(t, err)
	for _, m := range config.SupportedModels {
		assert.Contains(t, out, m)
	}

	server := test.NewMockOpenAIServer(t)
	server.Models = []string{"remote-model-b", "remote-model-a"}
	out, err = execute(t, "models", "--remote", "--api-key", "sk-test", "--api-base", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "remote-model-a")
	assert.Contains(t, out, "remote-model-b")
	assert.NotContains(t, out, "gpt-4-turbo")

	_, err = execute(t, "models", "--remote")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestLanguagesCommand(t *testing.T) {
	out, err := execute(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "Chinese")
	assert.Contains(t, out, "Noto Sans SC")
	assert.Contains(t, out, "rtl")
	assert.Contains(t, out, config.AutoLanguage)
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config", "--api-key", "sk-1234567890abcdef", "-m", "gpt-4o")
	require.NoError(t, err)
	assert.Contains(t, out, "sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.Contains(t, out, "gpt-4o")

	path := filepath.Join(t.TempDir(), "saved.yaml")
	_, err = execute(t, "config", "save", path, "--api-key", "sk-secret-key-value", "-t", "ja")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "target_lang: ja")
	assert.NotContains(t, string(data), "sk-secret-key-value")
}

func TestGenerateDefaultOutputFile(t *testing.T) {
	assert.Equal(t, "book_translated.epub", generateDefaultOutputFile("book.epub"))
	assert.Equal(t, "/a/b/c_translated.epub", generateDefaultOutputFile("/a/b/c.epub"))
	assert.Equal(t, "noext_translated", generateDefaultOutputFile("noext"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}

func TestHistoryCommand(t *testing.T) {
	historyFile := filepath.Join(t.TempDir(), "history.json")

	out, err := execute(t, "history", "--history-file", historyFile)
	require.NoError(t, err)
	assert.Contains(t, out, "暂无翻译记录")

	server := test.NewMockOpenAIServer(t)
	input := test.WriteEPUB(t, sampleBook())
	_, err = execute(t, input, "--api-key", "sk-test", "--api-base", server.URL,
		"-t", "ja", "--no-progress", "--history-file", historyFile)
	require.NoError(t, err)

	_, err = execute(t, filepath.Join(t.TempDir(), "missing.epub"), "--api-key", "sk-test",
		"--api-base", server.URL, "--no-progress", "--history-file", historyFile)
	require.Error(t, err)

	// 预演和 --no-history 不写历史
	_, err = execute(t, input, "--dry-run", "--history-file", historyFile)
	require.NoError(t, err)
	_, err = execute(t, input, filepath.Join(t.TempDir(), "skip.epub"), "--api-key", "sk-test",
		"--api-base", server.URL, "--no-progress", "--no-history", "--history-file", historyFile)
	require.NoError(t, err)

	out, err = execute(t, "history", "--history-file", historyFile)
	require.NoError(t, err)
	assert.Contains(t, out, "最近 2 次翻译")
	assert.Contains(t, out, "book.epub")
	assert.Contains(t, out, "missing.epub")
	assert.Contains(t, out, "→ ja")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "2 次 (失败 1)")
}
