// Package llm provides the language-model collaborators used for translation
// and video summaries.
//
// Every backend implements Completer: it receives the full chat history and
// returns the reply text. Backends are selected by method name through New:
//
//   - openrouter: Client, an OpenAI-compatible chat completion client
//   - openai, ollama, anthropic: langchaingo models wrapped by LangChain
//   - libretranslate: MachineTranslator, which answers in quoted form
//
// # Retry Behaviour
//
// Client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately. Content-level retries
// (rejected translations) belong to the caller.
//
// DecodeLLMJSON tolerates code fences and prose around JSON payloads.
package llm
