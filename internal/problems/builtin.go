package problems

import "github.com/algo-arena/arena-server/internal/engine"

// Harness stdout markers the judge gateway greps for.
const (
	CaseMarker   = "AA_CASE"
	HiddenMarker = "AA_HIDDEN"
)

var builtinProblems = []Problem{
	{
		ID:         "two-sum",
		Title:      "Two Sum",
		Difficulty: engine.DifficultyEasy,
		Description: "Given an array of integers nums and an integer target, " +
			"return the indices of the two numbers that add up to target. " +
			"Exactly one solution exists; you may not use the same element twice.",
		StartingCode: map[string]string{
			LangTypeScript: "function twoSum(nums: number[], target: number): number[] {\n  // your code here\n  return [];\n}\n",
			LangPython:     "def two_sum(nums, target):\n    # your code here\n    return []\n",
		},
		Harness: map[string]string{
			LangTypeScript: `
const __cases: Array<[number[], number, number[]]> = [
  [[2, 7, 11, 15], 9, [0, 1]],
  [[3, 2, 4], 6, [1, 2]],
  [[3, 3], 6, [0, 1]],
];
__cases.forEach(([nums, target, want], i) => {
  const got = twoSum(nums.slice(), target);
  const ok = Array.isArray(got) && got.length === 2 && nums[got[0]] + nums[got[1]] === target;
  console.log("AA_CASE " + (i + 1) + (ok ? " PASS" : " FAIL"));
});
{
  const nums = Array.from({ length: 2000 }, (_, i) => i * 2);
  const got = twoSum(nums.slice(), 3994);
  const ok = Array.isArray(got) && got.length === 2 && nums[got[0]] + nums[got[1]] === 3994;
  console.log("AA_HIDDEN" + (ok ? " PASS" : " FAIL"));
}
`,
			LangPython: `
__cases = [
    ([2, 7, 11, 15], 9),
    ([3, 2, 4], 6),
    ([3, 3], 6),
]
for __i, (__nums, __target) in enumerate(__cases):
    __got = two_sum(list(__nums), __target)
    __ok = isinstance(__got, list) and len(__got) == 2 and __nums[__got[0]] + __nums[__got[1]] == __target
    print("AA_CASE", __i + 1, "PASS" if __ok else "FAIL")
__nums = [i * 2 for i in range(2000)]
__got = two_sum(list(__nums), 3994)
__ok = isinstance(__got, list) and len(__got) == 2 and __nums[__got[0]] + __nums[__got[1]] == 3994
print("AA_HIDDEN", "PASS" if __ok else "FAIL")
`,
		},
		VisibleCases: 3,
		HasHidden:    true,
	},
	{
		ID:         "longest-unique-substring",
		Title:      "Longest Substring Without Repeating Characters",
		Difficulty: engine.DifficultyMedium,
		Description: "Given a string s, return the length of the longest " +
			"substring without repeating characters.",
		StartingCode: map[string]string{
			LangTypeScript: "function lengthOfLongestSubstring(s: string): number {\n  // your code here\n  return 0;\n}\n",
			LangPython:     "def length_of_longest_substring(s):\n    # your code here\n    return 0\n",
		},
		Harness: map[string]string{
			LangTypeScript: `
const __cases: Array<[string, number]> = [
  ["abcabcbb", 3],
  ["bbbbb", 1],
  ["pwwkew", 3],
  ["", 0],
];
__cases.forEach(([s, want], i) => {
  const ok = lengthOfLongestSubstring(s) === want;
  console.log("AA_CASE " + (i + 1) + (ok ? " PASS" : " FAIL"));
});
{
  const s = "ab".repeat(5000) + "abcdefghij";
  const ok = lengthOfLongestSubstring(s) === 10;
  console.log("AA_HIDDEN" + (ok ? " PASS" : " FAIL"));
}
`,
			LangPython: `
__cases = [
    ("abcabcbb", 3),
    ("bbbbb", 1),
    ("pwwkew", 3),
    ("", 0),
]
for __i, (__s, __want) in enumerate(__cases):
    __ok = length_of_longest_substring(__s) == __want
    print("AA_CASE", __i + 1, "PASS" if __ok else "FAIL")
__s = "ab" * 5000 + "abcdefghij"
print("AA_HIDDEN", "PASS" if length_of_longest_substring(__s) == 10 else "FAIL")
`,
		},
		VisibleCases: 4,
		HasHidden:    true,
	},
	{
		ID:         "trapping-rain-water",
		Title:      "Trapping Rain Water",
		Difficulty: engine.DifficultyHard,
		Description: "Given n non-negative integers representing an elevation " +
			"map where the width of each bar is 1, compute how much water can " +
			"be trapped after raining.",
		StartingCode: map[string]string{
			LangTypeScript: "function trap(height: number[]): number {\n  // your code here\n  return 0;\n}\n",
			LangPython:     "def trap(height):\n    # your code here\n    return 0\n",
		},
		Harness: map[string]string{
			LangTypeScript: `
const __cases: Array<[number[], number]> = [
  [[0, 1, 0, 2, 1, 0, 1, 3, 2, 1, 2, 1], 6],
  [[4, 2, 0, 3, 2, 5], 9],
  [[], 0],
];
__cases.forEach(([height, want], i) => {
  const ok = trap(height.slice()) === want;
  console.log("AA_CASE " + (i + 1) + (ok ? " PASS" : " FAIL"));
});
{
  const height: number[] = [];
  for (let i = 0; i < 10000; i++) height.push(i % 2 === 0 ? 0 : 5);
  const ok = trap(height) === 5 * 4999;
  console.log("AA_HIDDEN" + (ok ? " PASS" : " FAIL"));
}
`,
			LangPython: `
__cases = [
    ([0, 1, 0, 2, 1, 0, 1, 3, 2, 1, 2, 1], 6),
    ([4, 2, 0, 3, 2, 5], 9),
    ([], 0),
]
for __i, (__h, __want) in enumerate(__cases):
    __ok = trap(list(__h)) == __want
    print("AA_CASE", __i + 1, "PASS" if __ok else "FAIL")
__h = [0 if i % 2 == 0 else 5 for i in range(10000)]
print("AA_HIDDEN", "PASS" if trap(__h) == 5 * 4999 else "FAIL")
`,
		},
		VisibleCases: 3,
		HasHidden:    true,
	},
}

var builtinTrivia = []Question{
	{
		Question:      "What is the average-case time complexity of quicksort?",
		Options:       []string{"O(n log n)", "O(n^2)", "O(log n)", "O(n)"},
		CorrectAnswer: "O(n log n)",
		Category:      "Algorithms",
		Difficulty:    "easy",
	},
	{
		Question:      "Which data structure uses FIFO ordering?",
		Options:       []string{"Queue", "Stack", "Heap", "Trie"},
		CorrectAnswer: "Queue",
		Category:      "Data Structures",
		Difficulty:    "easy",
	},
	{
		Question:      "What does the 'A' in ACID stand for?",
		Options:       []string{"Atomicity", "Availability", "Authorization", "Aggregation"},
		CorrectAnswer: "Atomicity",
		Category:      "Databases",
		Difficulty:    "easy",
	},
	{
		Question:      "Which traversal of a binary search tree yields sorted order?",
		Options:       []string{"In-order", "Pre-order", "Post-order", "Level-order"},
		CorrectAnswer: "In-order",
		Category:      "Data Structures",
		Difficulty:    "medium",
	},
	{
		Question:      "Dijkstra's algorithm fails when the graph contains what?",
		Options:       []string{"Negative edge weights", "Cycles", "Self loops", "Parallel edges"},
		CorrectAnswer: "Negative edge weights",
		Category:      "Algorithms",
		Difficulty:    "medium",
	},
	{
		Question:      "What is the worst-case lookup time in a balanced AVL tree?",
		Options:       []string{"O(log n)", "O(1)", "O(n)", "O(n log n)"},
		CorrectAnswer: "O(log n)",
		Category:      "Data Structures",
		Difficulty:    "medium",
	},
	{
		Question:      "Which HTTP status code means 'Too Many Requests'?",
		Options:       []string{"429", "403", "418", "503"},
		CorrectAnswer: "429",
		Category:      "Networking",
		Difficulty:    "easy",
	},
	{
		Question:      "TCP guarantees which of the following?",
		Options:       []string{"Ordered delivery", "Minimum latency", "Broadcast support", "Message boundaries"},
		CorrectAnswer: "Ordered delivery",
		Category:      "Networking",
		Difficulty:    "medium",
	},
	{
		Question:      "What does CAP stand for in the CAP theorem?",
		Options:       []string{"Consistency, Availability, Partition tolerance", "Concurrency, Atomicity, Persistence", "Caching, Availability, Performance", "Consistency, Atomicity, Parallelism"},
		CorrectAnswer: "Consistency, Availability, Partition tolerance",
		Category:      "Distributed Systems",
		Difficulty:    "hard",
	},
	{
		Question:      "Which scheduling hazard do mutexes prevent?",
		Options:       []string{"Race conditions", "Deadlocks", "Page faults", "Cache misses"},
		CorrectAnswer: "Race conditions",
		Category:      "Operating Systems",
		Difficulty:    "easy",
	},
}
