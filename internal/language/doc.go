// Package language provides unified language code normalization and mapping.
//
// Configured target languages arrive as words ("Simplified Chinese"), ISO
// codes, or BCP 47 tags. This package turns any of them into ISO codes for
// machine translation, display names for prompts, native names for the
// translation validator, and default synthesis voices.
package language
