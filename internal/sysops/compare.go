package sysops

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/b2nix/nx/internal/cmdutil"
	"github.com/b2nix/nx/internal/lock"
)

// compareSummary condenses a GitHub compare between two revisions.
type compareSummary struct {
	TotalCommits   int
	CommitSubjects []string
}

func (s *compareSummary) Format() string {
	suffix := "s"
	if s.TotalCommits == 1 {
		suffix = ""
	}
	if len(s.CommitSubjects) == 0 {
		return fmt.Sprintf("%d commit%s", s.TotalCommits, suffix)
	}
	return fmt.Sprintf("%d commit%s: %s", s.TotalCommits, suffix, strings.Join(s.CommitSubjects, " | "))
}

func fetchFlakeCompareSummary(change *lock.InputChange) *compareSummary {
	endpoint, ok := flakeCompareEndpoint(change)
	if !ok {
		return nil
	}
	return fetchCompareSummary(endpoint)
}

func fetchBrewCompareSummary(pkg *brewOutdatedPackage) *compareSummary {
	owner, repo, ok := githubOwnerRepo(pkg.Homepage)
	if !ok {
		return nil
	}
	oldV := normalizeVersion(pkg.InstalledVersion)
	newV := normalizeVersion(pkg.CurrentVersion)
	if oldV == "" || newV == "" {
		return nil
	}
	return fetchCompareSummary(fmt.Sprintf("repos/%s/%s/compare/%s...%s", owner, repo, oldV, newV))
}

func fetchCompareSummary(endpoint string) *compareSummary {
	out, err := cmdutil.RunCaptured("gh", []string{"api", endpoint}, "")
	if err != nil || out.Code != 0 {
		return nil
	}
	return parseCompareJSON(out.Stdout)
}

func parseCompareJSON(jsonStr string) *compareSummary {
	var data struct {
		TotalCommits int `json:"total_commits"`
		Commits      []struct {
			Commit struct {
				Message string `json:"message"`
			} `json:"commit"`
		} `json:"commits"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil || len(data.Commits) == 0 {
		return nil
	}

	total := data.TotalCommits
	if total == 0 {
		total = len(data.Commits)
	}

	var subjects []string
	for _, c := range data.Commits {
		line := firstCommitLine(c.Commit.Message)
		if line == "" {
			continue
		}
		subjects = append(subjects, line)
		if len(subjects) == 3 {
			break
		}
	}

	return &compareSummary{TotalCommits: total, CommitSubjects: subjects}
}

func firstCommitLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(line)
}

func flakeCompareEndpoint(change *lock.InputChange) (string, bool) {
	oldRev := lock.ShortRev(change.OldRev)
	newRev := lock.ShortRev(change.NewRev)
	if oldRev == "" || newRev == "" {
		return "", false
	}
	return fmt.Sprintf("repos/%s/%s/compare/%s...%s", change.Owner, change.Repo, oldRev, newRev), true
}

// keyInputs are the flake inputs whose changes get the detailed summary
// treatment regardless of commit volume.
var keyInputs = []string{"nixpkgs", "home-manager", "nix-darwin"}

func shouldUseDetailedAISummary(inputName string, commitCount int) bool {
	return lo.Contains(keyInputs, inputName) || commitCount > 50
}

// maybeAISummary gates the assistant-backed summaries behind --no-ai.
func maybeAISummary(noAI bool, summarize func() string) string {
	if noAI {
		return ""
	}
	return summarize()
}

func summarizeFlakeChangeAI(change *lock.InputChange, summary *compareSummary) string {
	target := fmt.Sprintf("flake input %s (%s/%s)", change.Name, change.Owner, change.Repo)
	detailed := shouldUseDetailedAISummary(change.Name, summary.TotalCommits)
	return summarizeWithAI(target, summary.CommitSubjects, detailed, 2, 400)
}

func summarizeBrewChangeAI(pkg *brewOutdatedPackage, summary *compareSummary) string {
	target := fmt.Sprintf("Homebrew package %s (%s -> %s)", pkg.Name, pkg.InstalledVersion, pkg.CurrentVersion)
	return summarizeWithAI(target, summary.CommitSubjects, false, 1, 180)
}

func summarizeWithAI(target string, commits []string, detailed bool, maxLines, maxChars int) string {
	if len(commits) == 0 {
		return ""
	}
	if detailed {
		if s := summarizeWithClaude(target, commits, maxLines, maxChars); s != "" {
			return s
		}
		return summarizeWithCodex(target, commits, maxLines, maxChars)
	}
	if s := summarizeWithCodex(target, commits, maxLines, maxChars); s != "" {
		return s
	}
	return summarizeWithClaude(target, commits, maxLines, maxChars)
}

const defaultCodexModel = "gpt-5-codex"

func summarizeWithCodex(target string, commits []string, maxLines, maxChars int) string {
	prompt := buildSummaryPrompt(target, commits, 30,
		"Summarize these software update commits for %s in 1 sentence.\n"+
			"Focus on user-visible features, fixes, security updates, and breaking changes.\n"+
			"Ignore minor refactors and dependency churn.")
	return runAISummary("codex", []string{"exec", "-m", defaultCodexModel, "--full-auto", prompt}, maxLines, maxChars)
}

func summarizeWithClaude(target string, commits []string, maxLines, maxChars int) string {
	prompt := buildSummaryPrompt(target, commits, 40,
		"Summarize the key upgrade impact for %s in 2 short sentences.\n"+
			"Focus on behavior changes users will notice, important fixes, and any risks.\n"+
			"Skip internal-only refactors.")
	return runAISummary("claude", []string{"--print", "-p", prompt}, maxLines, maxChars)
}

func buildSummaryPrompt(target string, commits []string, maxCommits int, template string) string {
	if len(commits) > maxCommits {
		commits = commits[:maxCommits]
	}
	lines := lo.Map(commits, func(c string, _ int) string { return "- " + c })
	return fmt.Sprintf(template, target) + "\n\nCommits:\n" + strings.Join(lines, "\n") + "\n\nSummary:"
}

func runAISummary(program string, args []string, maxLines, maxChars int) string {
	if !cmdutil.Exists(program) {
		return ""
	}
	out, err := cmdutil.RunCaptured(program, args, "")
	if err != nil || out.Code != 0 {
		return ""
	}
	return parseAISummaryOutput(out.Stdout, maxLines, maxChars)
}

func parseAISummaryOutput(output string, maxLines, maxChars int) string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "-* ")
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxLines {
			break
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return truncateSummary(strings.TrimSpace(strings.Join(lines, " ")), maxChars)
}

func truncateSummary(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	keep := maxChars - 3
	if keep < 0 {
		keep = 0
	}
	shortened := strings.TrimRight(string(runes[:keep]), " ")
	return shortened + "..."
}
