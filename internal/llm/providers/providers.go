// Package providers registers every built-in llm provider. Import it for
// its side effects before calling llm.Build.
package providers

import (
	_ "agrofin/internal/llm/claude"
	_ "agrofin/internal/llm/gemini"
	_ "agrofin/internal/llm/openai"
)
