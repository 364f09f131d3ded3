package weave

import (
	"maps"
	"strings"

	"golang.org/x/net/html"
)

func init() {
	for _, s := range []Bundle{rstBundle, htmlBundle, texBundle, texMintedBundle, markdownBundle, mdHTMLBundle, debugBundle} {
		m, err := Define(s)
		if err != nil {
			panic(err)
		}
		Register(m)
	}
}

// DefaultMarkup is used when none is configured.
const DefaultMarkup = "rst"

var rstBundle = Bundle{
	Name:      "rst",
	Extension: ".rst",
	Templates: map[string]string{
		"link": "→ `{{.Name}} ({{.Seq}})`_",
		"refs": `{{range $i, $r := .}}{{if $i}}, {{end}}{{template "link" $r}}{{end}}`,

		"begin_code": "\n..  _`{{.FullName}} ({{.Seq}})`:\n..  rubric:: {{.FullName}} ({{.Seq}}) =\n" +
			"..  code-block::{{with .Style}} {{.}}{{end}}\n    :class: code\n\n    ",
		"end_code": "\n..\n\n..  container:: small\n\n    ∎ *{{.FullName}} ({{.Seq}})*.\n" +
			"{{if .UsedBy}}    Used by {{template \"refs\" .UsedBy}}.\n{{end}}\n",
		"begin_file": "\n..  _`{{.Name}} ({{.Seq}})`:\n..  rubric:: {{.Name}} ({{.Seq}}) =\n" +
			"..  code-block::{{with .Style}} {{.}}{{end}}\n    :class: code\n\n    ",
		"end_file": "\n..\n\n..  container:: small\n\n    ∎ *{{.Name}} ({{.Seq}})*.\n\n",
		"code":     "{{indent .Text}}",
		"ref":      `{{template "link" .}}`,
		"ref_code": `{{template "link" .}}`,

		"file_xref":   "\n{{range .Entries}}:{{.Name}}:\n    {{template \"refs\" .Refs}}\n{{end}}\n",
		"macro_xref":  "\n{{range .Entries}}:{{.Name}}:\n    {{template \"refs\" .Refs}}\n{{end}}\n",
		"userid_xref": "\n{{range .Entries}}:{{.Name}}:\n    {{template \"refs\" .Refs}}\n{{end}}\n",
	},
}

var htmlBundle = Bundle{
	Name:      "html",
	Extension: ".html",
	Quote:     html.EscapeString,
	Templates: map[string]string{
		"link": `&rarr;<a href="#litweb_{{.Seq}}"><em>{{quote .Name}} ({{.Seq}})</em></a>`,
		"refs": `{{range $i, $r := .}}{{if $i}}, {{end}}{{template "link" $r}}{{end}}`,

		"begin_code": "\n<a name=\"litweb_{{.Seq}}\"></a>\n<!--line number {{.Location}}-->\n" +
			"<p><em>{{quote .FullName}} ({{.Seq}})</em> =</p>\n<pre><code>",
		"end_code": "\n</code></pre>\n<p>&#8718; <em>{{quote .FullName}} ({{.Seq}})</em>.\n" +
			"{{if .UsedBy}}Used by {{template \"refs\" .UsedBy}}.\n{{end}}</p>\n",
		"begin_file": "\n<a name=\"litweb_{{.Seq}}\"></a>\n<!--line number {{.Location}}-->\n" +
			"<p><tt>{{quote .Name}}</tt> ({{.Seq}}) =</p>\n<pre><code>",
		"end_file": "\n</code></pre>\n<p>&#8718; <tt>{{quote .Name}}</tt> ({{.Seq}}).\n</p>\n",
		"code":     "{{.Text}}",
		"ref":      `{{template "link" .}}`,
		"ref_code": `{{template "link" .}}`,

		"file_xref":   "<dl>\n{{range .Entries}}<dt><tt>{{quote .Name}}</tt></dt><dd>{{template \"refs\" .Refs}}</dd>\n{{end}}</dl>\n",
		"macro_xref":  "<dl>\n{{range .Entries}}<dt>{{quote .Name}}</dt><dd>{{template \"refs\" .Refs}}</dd>\n{{end}}</dl>\n",
		"userid_xref": "<dl>\n{{range .Entries}}<dt><tt>{{quote .Name}}</tt></dt><dd>{{template \"refs\" .Refs}}</dd>\n{{end}}</dl>\n",
	},
}

// Verbatim is opened with commandchars so references inside code can use
// \textit; only its own end marker needs breaking up.
var texQuote = strings.NewReplacer(`\end{Verbatim}`, `\end\,{Verbatim}`).Replace

var texMintedQuote = strings.NewReplacer(`\end{minted}`, `\end\,{minted}`).Replace

var texName = strings.NewReplacer(
	`\`, `\textbackslash{}`, `_`, `\_`, `&`, `\&`, `%`, `\%`,
	`#`, `\#`, `$`, `\$`, `{`, `\{`, `}`, `\}`,
).Replace

// TeX is full of braces, so the TeX bundles use <% %> as delimiters.
var texTemplates = map[string]string{
	"link": `\textit{<%texname .Name%> (<%.Seq%>)} on p.~\pageref{litweb-<%.Seq%>}`,
	"refs": `<%range $i, $r := .%><%if $i%>, <%end%><%template "link" $r%><%end%>`,

	"begin_code": "\n\\label{litweb-<%.Seq%>}\n\\begin{flushleft}\n\\textit{Code example <%texname .FullName%> (<%.Seq%>)}\n" +
		"\\begin{Verbatim}[commandchars=\\\\\\{\\},codes={\\catcode`$$=3\\catcode`^=7},frame=single]",
	"end_code": "\n\\end{Verbatim}\n<%if .UsedBy%>\\footnotesize Used by <%template \"refs\" .UsedBy%>.\n<%end%>\\end{flushleft}\n",
	"begin_file": "\n\\label{litweb-<%.Seq%>}\n\\begin{flushleft}\n\\texttt{<%texname .Name%>} (<%.Seq%>)\n" +
		"\\begin{Verbatim}[commandchars=\\\\\\{\\},codes={\\catcode`$$=3\\catcode`^=7},frame=single]",
	"end_file": "\n\\end{Verbatim}\n\\end{flushleft}\n",
	"code":     "<%.Text%>",
	"ref":      `<%template "link" .%>`,
	"ref_code": `\textit{<%texname .Name%> (<%.Seq%>)}`,

	"file_xref":   "\n\\begin{itemize}\n<%range .Entries%>\\item \\texttt{<%texname .Name%>}: <%template \"refs\" .Refs%>\n<%end%>\\end{itemize}\n",
	"macro_xref":  "\n\\begin{itemize}\n<%range .Entries%>\\item \\textit{<%texname .Name%>}: <%template \"refs\" .Refs%>\n<%end%>\\end{itemize}\n",
	"userid_xref": "\n\\begin{itemize}\n<%range .Entries%>\\item \\texttt{<%texname .Name%>}: <%template \"refs\" .Refs%>\n<%end%>\\end{itemize}\n",
}

var texBundle = Bundle{
	Name:      "tex",
	Extension: ".tex",
	Quote:     texQuote,
	Delims:    [2]string{"<%", "%>"},
	Funcs:     map[string]any{"texname": texName},
	Templates: texTemplates,
}

var texMintedBundle = Bundle{
	Name:      "tex-minted",
	Extension: ".tex",
	Quote:     texMintedQuote,
	Delims:    [2]string{"<%", "%>"},
	Funcs:     map[string]any{"texname": texName},
	Templates: merge(texTemplates, map[string]string{
		"begin_code": "\n\\label{litweb-<%.Seq%>}\n\\textit{Code example <%texname .FullName%> (<%.Seq%>)}\n" +
			"\\begin{minted}{<%or .Style \"text\"%>}",
		"end_code": "\n\\end{minted}\n<%if .UsedBy%>\\footnotesize Used by <%template \"refs\" .UsedBy%>.\n<%end%>",
		"begin_file": "\n\\label{litweb-<%.Seq%>}\n\\texttt{<%texname .Name%>} (<%.Seq%>)\n" +
			"\\begin{minted}{<%or .Style \"text\"%>}",
		"end_file": "\n\\end{minted}\n",
		"ref_code": "→ <%.Name%> (<%.Seq%>)",
	}),
}

var markdownTemplates = map[string]string{
	"link": "[→ {{.Name}} ({{.Seq}})](#litweb_{{.Seq}})",
	"refs": `{{range $i, $r := .}}{{if $i}}, {{end}}{{template "link" $r}}{{end}}`,

	"begin_code": "\n<a id=\"litweb_{{.Seq}}\"></a>\n*{{.FullName}} ({{.Seq}})* =\n\n```{{.Style}}\n",
	"end_code":   "\n```\n\n∎ *{{.FullName}} ({{.Seq}})*.{{if .UsedBy}} Used by {{template \"refs\" .UsedBy}}.{{end}}\n\n",
	"begin_file": "\n<a id=\"litweb_{{.Seq}}\"></a>\n`{{.Name}}` ({{.Seq}}) =\n\n```{{.Style}}\n",
	"end_file":   "\n```\n\n∎ `{{.Name}}` ({{.Seq}}).\n\n",
	"code":       "{{.Text}}",
	"ref":        `{{template "link" .}}`,
	"ref_code":   "→ {{.Name}} ({{.Seq}})",

	"file_xref":   "\n{{range .Entries}}- `{{.Name}}`: {{template \"refs\" .Refs}}\n{{end}}\n",
	"macro_xref":  "\n{{range .Entries}}- *{{.Name}}*: {{template \"refs\" .Refs}}\n{{end}}\n",
	"userid_xref": "\n{{range .Entries}}- `{{.Name}}`: {{template \"refs\" .Refs}}\n{{end}}\n",
}

var markdownBundle = Bundle{
	Name:      "markdown",
	Extension: ".md",
	Templates: markdownTemplates,
}

var mdHTMLBundle = Bundle{
	Name:      "md-html",
	Extension: ".html",
	Templates: markdownTemplates,
	Finish:    markdownToHTML,
}

var debugBundle = Bundle{
	Name:      "debug",
	Extension: ".debug",
	Templates: map[string]string{
		"names": `{{range $i, $r := .}}{{if $i}}, {{end}}{{$r.Name}} ({{$r.Seq}}){{end}}`,

		"text":       "text: {{printf \"%q\" .Text}} {{.Location}}\n",
		"begin_code": "begin_code: {{.FullName}} ({{.Seq}}) {{.Location}}\n",
		"end_code":   "end_code: {{.FullName}} ({{.Seq}}) used by [{{template \"names\" .UsedBy}}]\n",
		"begin_file": "begin_file: {{.Name}} ({{.Seq}}) {{.Location}}\n",
		"end_file":   "end_file: {{.Name}} ({{.Seq}})\n",
		"code":       "code: {{printf \"%q\" .Text}}\n",
		"ref":        "ref: {{.Name}} ({{.Seq}})\n",
		"ref_code":   "ref_code: {{.Name}} ({{.Seq}})\n",

		"file_xref":   "file_xref:{{range .Entries}} {{.Name}}=[{{template \"names\" .Refs}}]{{end}}\n",
		"macro_xref":  "macro_xref:{{range .Entries}} {{.Name}}=[{{template \"names\" .Refs}}]{{end}}\n",
		"userid_xref": "userid_xref:{{range .Entries}} {{.Name}}=[{{template \"names\" .Refs}}]{{end}}\n",
	},
}

func merge(base, over map[string]string) map[string]string {
	out := maps.Clone(base)
	maps.Copy(out, over)
	return out
}
