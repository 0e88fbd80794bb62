// Package asyncify rewrites nas syntax trees so that synchronous-looking
// functions run as suspension-capable coroutines.
//
// # Overview
//
// A call is "magic" when the name it targets starts with one of a configured
// set of prefixes. The name of a call is the bare identifier (do_fetch(x))
// or the final attribute segment (self.session.get(url)). Calls through any
// other expression, such as handlers[0](), are never magic.
//
// Transform performs two independent rewrites on a copy of the tree:
//
//  1. Promotion. A def whose own body contains a magic call becomes an
//     async def. Blocks nested inside the function count; bodies of nested
//     defs and classes do not. Functions named __like_this__ are never
//     promoted.
//  2. Wrapping. Every magic call anywhere in the tree becomes the operand
//     of an await, unless it already is one.
//
// Promotion is driven purely by names. A function that calls a promoted
// function under a non-magic name is neither promoted nor wrapped.
//
// # Usage
//
//	res, err := asyncify.Transform(tree, asyncify.Config{
//	    Magic: asyncify.EffectiveMagic("get", "head"),
//	})
//	fmt.Println(res.Promoted, res.Wrapped)
//
// With nothing configured the set is just "do". Matchers other than
// prefix matching can be supplied through Config.Matcher:
//
//	m := asyncify.NewCompositeMatcher(
//	    asyncify.NewExactMatcher([]string{"fetch"}),
//	    asyncify.NewWildcardMatcher([]string{"*_async"}),
//	)
package asyncify
