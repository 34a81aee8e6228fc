package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hightemp/topic-trainer-ai/internal/models"
)

// stdin is shared so buffered input is not lost between prompts.
var stdin = bufio.NewReader(os.Stdin)

func parseTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func bar(n int) string {
	return strings.Repeat("█", n)
}

// categoryPaths maps every category id to its "Parent / Child" path.
func categoryPaths(categories []models.Category) map[string]string {
	byID := make(map[string]models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	paths := make(map[string]string, len(categories))
	for _, c := range categories {
		parts := []string{c.Name}
		seen := map[string]bool{c.ID: true}
		for p, ok := byID[c.ParentID]; ok && !seen[p.ID]; p, ok = byID[p.ParentID] {
			seen[p.ID] = true
			parts = append([]string{p.Name}, parts...)
		}
		paths[c.ID] = strings.Join(parts, " / ")
	}
	return paths
}

// readLine returns the next trimmed line and io.EOF once input is exhausted.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	return strings.TrimSpace(line), err
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Print(prompt)
	input, _ := readLine(r)
	input = strings.ToLower(input)
	return input == "y" || input == "yes"
}
