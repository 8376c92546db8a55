// Package language normalizes the language tags carried by posts and queue
// items and renders them for prompts.
//
// Tags are BCP 47 and parsed with golang.org/x/text/language, so "ES",
// "es" and "es-es" compare as expected and "pt-br" normalizes to "pt-BR".
// DisplayName feeds the {source_lang} placeholder of the prompt template.
package language
