// Package matching scores Numista search candidates against a coin and decides
// whether the best one is trustworthy enough to write back.
//
// A Profile carries every weight and threshold. Two built-in profiles exist:
// the general profile ranks by title, token overlap, issuer, year and category;
// the ruler profile ranks by year, category, denomination and ruler name and
// re-checks the fetched detail with Consistent before a write. Select applies
// the dual floor: the best score must reach Floor and lead the runner-up by at
// least Gap.
package matching
