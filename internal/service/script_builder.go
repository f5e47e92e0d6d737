package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"quiz-pilot/internal/domain"
)

const (
	pythonStartMarker = "#PYTHON_START"
	pythonEndMarker   = "#PYTHON_END"
)

// Libraries the sandbox does not provide or that LLMs misuse for PDFs.
var rejectedPythonPatterns = []string{
	"read_html", "html5lib", "lxml", "camelot", "tabula", "pdfplumber", "fitz", "PyMuPDF",
}

var (
	errMissingMarkers = errors.New("reply is missing #PYTHON_START/#PYTHON_END markers")
	codeFence         = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
)

// ExtractPythonBody returns the code between the markers, rejecting
// unsupported libraries.
func ExtractPythonBody(reply string) (string, error) {
	start := strings.Index(reply, pythonStartMarker)
	end := strings.LastIndex(reply, pythonEndMarker)
	if start == -1 || end == -1 || end < start {
		return "", errMissingMarkers
	}
	body := reply[start+len(pythonStartMarker) : end]
	body = codeFence.ReplaceAllString(body, "")
	for _, bad := range rejectedPythonPatterns {
		if strings.Contains(body, bad) {
			return "", fmt.Errorf("code uses unsupported library %q", bad)
		}
	}
	body = strings.ReplaceAll(body, "\r", "")
	body = strings.ReplaceAll(body, "pd.compat.StringIO", "io.StringIO")
	if strings.TrimSpace(body) == "" {
		return "", errors.New("code block is empty")
	}
	return body, nil
}

const scriptHeader = `import json
import base64
import io
import sys
import time
import tempfile
from pathlib import Path

import requests
import pandas as pd
import numpy as np

try:
    from bs4 import BeautifulSoup
except ImportError:
    BeautifulSoup = None
try:
    import PyPDF2
except ImportError:
    PyPDF2 = None
try:
    from PIL import Image
except ImportError:
    Image = None

_old_stdout = sys.stdout
sys.stdout = io.StringIO()

phase1_facts = json.loads(%s)
current_url = %s

# === BEGIN GENERATED CODE ===
`

const scriptFooter = `
# === END GENERATED CODE ===

sys.stdout = _old_stdout

try:
    final_answer
except NameError:
    raise RuntimeError("generated code did not set final_answer")

if isinstance(final_answer, np.generic):
    final_answer = final_answer.item()
elif isinstance(final_answer, np.ndarray):
    final_answer = final_answer.tolist()

print(json.dumps({"answer": final_answer}))
`

// BuildScript wraps a generated body with the fact preamble and the answer
// printer. Facts are embedded as a JSON string literal.
func BuildScript(result *domain.ExtractionResult, q *domain.QuestionRecord, body string) (string, error) {
	facts, err := json.Marshal(scriptFacts(result, q))
	if err != nil {
		return "", fmt.Errorf("encode facts: %w", err)
	}
	factsLiteral, err := json.Marshal(string(facts))
	if err != nil {
		return "", err
	}
	urlLiteral, err := json.Marshal(q.PageURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(scriptHeader, factsLiteral, urlLiteral) + body + scriptFooter, nil
}
