// Package syntax parses and prints nas, the class-oriented script dialect
// hosted by the noasync runtime.
//
// A nas file is a sequence of statements. Blocks are brace-delimited and
// statements end at a newline or ';'. Newlines inside parentheses and
// brackets are ignored.
//
//	@noasync
//	class Client {
//	    magic = ["get", "head"]
//
//	    def fetch(self, url) -> "status" {
//	        return self.session.get(url).status_code
//	    }
//	}
//
// Parse returns an *ast.File; Format renders a tree back to source, so the
// output of a tree rewrite can be inspected as text.
package syntax
