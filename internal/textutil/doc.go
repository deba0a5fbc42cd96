// Package textutil provides the text normalization used when comparing coin
// descriptions against catalog titles.
//
// Normalization folds diacritics, lowercases, and collapses every run of
// characters outside [a-z0-9] into a single space. Token sets derived from the
// normalized form are order-insensitive and deduplicated.
package textutil
