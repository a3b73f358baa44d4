package mcpserver

// FormatContract describes the canonical IATF document format that LLM
// consumers should follow when authoring or editing documents.
const FormatContract = `# IATF Document Format Contract

Every IATF document MUST follow this structure.

## Structure

` + "```" + `
:::IATF
@version: 1.0

===INDEX===
(auto-generated, never edit by hand; run a rebuild instead)

===CONTENT===

{#section-id}
@summary: One-line summary shown in the INDEX.
@created: 2025-01-15
@modified: 2025-01-15
# Section Title

Body text. Reference other sections inline with {@other-section}.
{/section-id}
` + "```" + `

## Rules

1. **The first line is the format declaration** ` + "`" + `:::IATF` + "`" + `.
2. **Sections are delimited** by ` + "`" + `{#id}` + "`" + ` and ` + "`" + `{/id}` + "`" + ` on their own lines.
   Ids start with a letter and contain only letters, digits, hyphens and
   underscores. Ids must be unique within a document.
3. **Nesting is at most two levels deep.** A child section opens inside its
   parent and must close before the parent closes.
4. **Header annotations** (` + "`" + `@summary:` + "`" + `, ` + "`" + `@created:` + "`" + `, ` + "`" + `@modified:` + "`" + `) go directly
   after the opening tag, before the heading or any other body line. The
   first non-annotation line (the heading included) ends the header; a
   later ` + "`" + `@summary:` + "`" + ` is ordinary body text. A summary may continue on the
   following indented lines.
5. **Inline references** use ` + "`" + `{@target-id}` + "`" + `. A section must not reference
   itself. References inside triple-backtick code fences are ignored.
6. **Never edit the INDEX block.** It is regenerated from CONTENT; the
   ` + "`" + `Modified:` + "`" + ` dates advance only when a section's body actually changes.
7. **Dates** are ISO-8601 (YYYY-MM-DD).

## Reading protocol

1. Call ` + "`" + `get_index` + "`" + ` to see every section with its line range and summary.
2. Call ` + "`" + `read_section` + "`" + ` for the sections you need, by id or title.
3. Call ` + "`" + `get_graph` + "`" + ` to follow cross-references between sections.
`
