// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

/*
Package llm provides the chat-completions client shared by every
language-model consumer: the intent extractor, the list judge, the
pairwise ranker, the persona summarizer and the phase labeler.

The client speaks the OpenAI-compatible chat completions protocol, so
any conforming endpoint works (hosted APIs, llama.cpp, vLLM, Ollama's
compatibility mode). One client serves all callers; callers differ only
in prompt, temperature and context deadline.

Two protections wrap every request:

  - a token-bucket rate limiter (golang.org/x/time/rate) that smooths
    burst load from batch jobs like candidate enrichment, and
  - a circuit breaker (gobreaker) that trips after consecutive upstream
    failures so a degraded provider fails fast instead of holding the
    pipeline at its timeout ceiling.

Responses are free text. ExtractJSON recovers the first JSON payload
from prose or markdown-fenced replies; callers that require structure
retry or degrade per their own policy, the client itself never retries.
*/
package llm
