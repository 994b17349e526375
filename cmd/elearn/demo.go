package main

import (
	"github.com/pavelanni/elearn/internal/model"
	"github.com/pavelanni/elearn/internal/table"
)

var resultsHeader = []string{"受験日時", "氏名", "メールアドレス", "部署", "役職", "得点", "判定"}

// seedDemo fills mem with a small directory, question bank and matrix.
func seedDemo(mem *table.Memory, names model.SheetNames) {
	mem.Put(names.Users, [][]string{
		{"氏名", "メールアドレス", "部署", "役職"},
		{"山田 太郎", "yamada@example.com", "営業部", ""},
		{"鈴木 花子", "suzuki@example.com", "営業部,修理室", ""},
		{"佐藤 一郎", "sato@example.com", "営業部", "部長"},
		{"高橋 次郎", "takahashi@example.com", "修理室", "次長"},
		{"田中 美咲", "tanaka@example.com", "全部署", "システム管理者"},
	})
	mem.Put(names.Questions, [][]string{
		{"問題ID", "問題文", "A", "B", "C", "D", "E", "正解", "形式"},
		{"Q1", "不審な添付ファイル付きメールを受信したときの対応は？", "すぐに開く", "送信者に返信する", "開かずに管理者へ報告する", "", "", "C", "単一選択"},
		{"Q2", "ランサムウェア対策として有効なものをすべて選んでください。", "定期的なバックアップ", "OSの更新", "パスワードの使い回し", "不要なマクロの無効化", "", "A,B,D", "複数選択"},
		{"Q3", "パスワードとして最も適切なものは？", "123456", "社名と生年月日", "長く推測されにくい文字列", "", "", "C", "単一選択"},
	})
	mem.Put(names.Matrix, [][]string{
		{"部署", "部長", "次長", "システム管理者"},
		{"営業部", "ON", "OFF", "OFF"},
		{"修理室", "OFF", "ON", "OFF"},
		{"全部署", "OFF", "OFF", "ON"},
	})
	mem.Put(names.Results, [][]string{resultsHeader})
}
