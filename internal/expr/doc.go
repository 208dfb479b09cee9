// Package expr evaluates the sandboxed expressions used by guards, template
// placeholders and dynamic values.
//
// Expressions are CEL programs over two variables: slots (the context map) and
// context (a map whose only key, "slots", holds the same map). Comprehension
// macros are disabled, so programs cannot loop; has() remains available for
// presence tests. Compiled programs are cached per source string.
package expr
