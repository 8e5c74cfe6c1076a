/*
Package template expands ${name} placeholders in prompt templates and
configuration values.

# Placeholders

A placeholder is ${name}, where name starts with a letter or underscore
and continues with letters, digits and underscores. ${name:-fallback}
substitutes fallback when name is not defined:

	out := template.Expand("Recommend a perfume for ${occasion}.", map[string]any{
	    "occasion": "a rainy evening",
	})

	dsn := template.Expand("${CATALOG_DSN:-file:catalog.db}", template.EnvVars())

Values are formatted with fmt's %v verb. Text outside placeholders is
copied unchanged, so JSON braces in prompts need no escaping.

# Missing Variables

MissingAction decides what happens to a placeholder without a value or a
fallback: MissingKeep leaves it in place (the default), MissingEmpty
removes it and MissingError reports an UndefinedVariableError listing
every missing name.

# Thread Safety

An Expander is immutable after NewExpander and safe for concurrent use.
*/
package template
