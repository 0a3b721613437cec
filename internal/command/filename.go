package command

import (
	"fmt"
	"strings"
)

// IsCVGeneration reports whether an endpoint name describes CV or resume
// generation, which gets the deterministic download filename below.
func IsCVGeneration(endpointName string) bool {
	name := strings.ToLower(endpointName)
	if !strings.Contains(name, "generat") {
		return false
	}
	return strings.Contains(name, "cv") || strings.Contains(name, "resume")
}

// CVFilename derives the download name for a generated CV from the call
// parameters: cv-<person>-<lang>-<template>.pdf.
func CVFilename(params map[string]string) string {
	person := params["person"]
	if person == "" {
		person = "document"
	}
	lang := params["lang"]
	if lang == "" {
		lang = "en"
	}
	template := params["template"]
	if template == "" {
		template = "default"
	}
	return fmt.Sprintf("cv-%s-%s-%s.pdf", person, lang, template)
}
